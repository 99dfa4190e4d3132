// Command dexter runs the confidential exchange client: the interaction
// engine plus the web interface serving the swap, liquidity, portfolio,
// analytics and history panels.
//
// Usage:
//
//	dexter --config config.yaml
//	dexter --setup   (interactive configuration wizard)
//	dexter           (uses CLI arguments)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dexterlabs/dexter/config"
	"github.com/dexterlabs/dexter/internal"
	"github.com/dexterlabs/dexter/internal/setup"
	"github.com/dexterlabs/dexter/internal/web"
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--setup" || arg == "-setup" {
			if err := setup.RunTUI(); err != nil {
				log.Fatal(err)
			}
			return
		}
	}

	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	app, err := internal.NewApp(conf, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer app.Log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &web.Server{
		Addr:      conf.ListenAddr,
		Session:   app.Session,
		Store:     app.Store,
		Quotes:    app.Quotes,
		Log:       app.Log,
		Views:     app.Views,
		Engine:    app.Engine,
		Collector: app.Collector,
		Pools:     app.Pools,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web interface listening", zap.String("addr", conf.ListenAddr))
		return server.Start(ctx)
	})
	g.Go(func() error {
		err := app.Collector.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("application failed", zap.Error(err))
	}
}
