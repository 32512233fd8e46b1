package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/vault"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the parameters for connecting to MinIO.
type MinioConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
	Region    string
}

// Minio stores containers in a MinIO bucket.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinio connects to MinIO and creates the bucket when it does not exist.
func NewMinio(ctx context.Context, cfg MinioConfig, log logging.Logger) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, transportError("minio bucket check", err)
	}
	if !exists {
		log.Info(ctx, "creating minio bucket", "bucket", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Minio{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (m *Minio) Get(ctx context.Context, deviceKey string) (vault.Container, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey(m.prefix, deviceKey), minio.GetObjectOptions{})
	if err != nil {
		return vault.Container{}, m.classify("minio get", err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	data, err := io.ReadAll(io.LimitReader(obj, maxContainerSize))
	if err != nil {
		return vault.Container{}, m.classify("minio read", err)
	}
	return vault.Decode(data)
}

func (m *Minio) Put(ctx context.Context, deviceKey string, c vault.Container) error {
	data, err := vault.Encode(c)
	if err != nil {
		return err
	}
	_, err = m.client.PutObject(ctx, m.bucket, objectKey(m.prefix, deviceKey),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return transportError("minio put", err)
	}
	return nil
}

func (m *Minio) classify(op string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
		return ErrNotFound
	}
	return transportError(op, err)
}
