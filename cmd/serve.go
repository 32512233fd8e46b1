package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/illarion/boveda/internal/logging"
	"github.com/illarion/boveda/internal/remote"
	"github.com/illarion/boveda/internal/server"
)

// Serve runs the sync server until ctx is cancelled. It stores containers
// in the configured remote backend, or in a bbolt file at remote.path when
// the remote is none or http.
func Serve(ctx context.Context, addr string) {
	cfg, log := LoadConfigOrExit()
	if addr == "" {
		addr = cfg.Server.Addr
	}

	backend, err := openBackend(ctx, cfg.RemoteStore(), log)
	if err != nil {
		HandleError(err)
	}
	if c, ok := backend.(io.Closer); ok {
		defer c.Close()
	}

	srv := server.New(backend, server.Options{
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
	}, log)

	fmt.Printf("Serving vaults on %s\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		HandleError(err)
	}
}

func openBackend(ctx context.Context, rc remote.Config, log logging.Logger) (remote.Store, error) {
	switch strings.ToLower(rc.Kind) {
	case "", remote.KindNone, remote.KindHTTP:
		rc.Kind = remote.KindBolt
	}
	return remote.Open(ctx, rc, log)
}
