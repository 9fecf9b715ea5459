package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yashubustudio/occumatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.cfg.Server.Addr = addr
		}

		rt.logger.Info("starting occumatch", zap.String("version", version), zap.String("addr", rt.cfg.Server.Addr))

		srv := server.New(rt.service, rt.cfg.Server, version, rt.logger)
		warm := func(ctx context.Context) error {
			start := time.Now()
			if err := rt.service.Warm(ctx); err != nil {
				return err
			}
			rt.logger.Info("indices ready", zap.Duration("took", time.Since(start)))
			return nil
		}
		return serveWhileWarming(ctx, warm, srv.ListenAndServe)
	},
}

// serveWhileWarming runs serve while warm builds the indices. Requests that
// arrive before warm-up finishes get 503 "initializing". A failed warm-up
// shuts the server down and is returned.
func serveWhileWarming(ctx context.Context, warm, serve func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := warm(gctx); err != nil {
			return fmt.Errorf("index warm-up failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return serve(gctx)
	})
	return g.Wait()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
}
