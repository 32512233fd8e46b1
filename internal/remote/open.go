package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illarion/boveda/internal/logging"
)

// Kinds accepted by Open.
const (
	KindNone     = "none"
	KindHTTP     = "http"
	KindS3       = "s3"
	KindMinio    = "minio"
	KindPostgres = "postgres"
	KindBolt     = "bolt"
)

// Config selects and configures a remote store.
type Config struct {
	Kind      string
	URL       string
	Timeout   time.Duration
	Bucket    string
	Prefix    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	DSN       string
	Path      string
}

// Open builds the store named by cfg.Kind. It returns a nil Store when sync
// is disabled. Stores that hold resources also implement io.Closer.
func Open(ctx context.Context, cfg Config, log logging.Logger) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", KindNone:
		return nil, nil
	case KindHTTP:
		return wrap(NewHTTP(cfg.URL, cfg.Timeout))
	case KindS3:
		return wrap(NewS3(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		}))
	case KindMinio:
		return wrap(NewMinio(ctx, MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
		}, log))
	case KindPostgres:
		return wrap(OpenPostgres(ctx, cfg.DSN))
	case KindBolt:
		if cfg.Path == "" {
			return nil, fmt.Errorf("remote.path is required for the bolt remote")
		}
		return wrap(OpenBolt(cfg.Path))
	default:
		return nil, fmt.Errorf("unknown remote kind %q", cfg.Kind)
	}
}

// wrap keeps a failed constructor from yielding a non-nil Store holding a nil pointer.
func wrap(s Store, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
