package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"muninn/pkg/book"
	"muninn/pkg/config"
	"muninn/pkg/engine"
	"muninn/pkg/server"
	"muninn/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	addr := flag.String("addr", "", "listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	log := cfg.Logger()

	var opts []engine.Option
	if cfg.UseBook && cfg.BookFile != "" {
		bk, err := book.LoadFile(cfg.BookFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.BookFile).Msg("load book")
		}
		log.Info().Int("positions", bk.Size()).Msg("book loaded")
		opts = append(opts, engine.WithBook(bk))
	}

	sessions := session.NewManager(cfg, log, opts...)
	defer sessions.CloseAll()
	srv, err := server.New(cfg, sessions, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configure server")
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.RunReaper(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("graceful shutdown failed")
			return httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		sessions.CloseAll()
		os.Exit(1)
	}
}
