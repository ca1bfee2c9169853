package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todoer/internal/board"
	"todoer/internal/docstore"
	"todoer/internal/repository"
	"todoer/internal/server"
	"todoer/internal/session"
	"todoer/internal/storage/memory"
	"todoer/internal/storage/sqlite"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}
	flags := cmd.Flags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("static", "web/dist", "directory with the built frontend")
	flags.String("store", "sqlite", "document store driver (sqlite, memory)")
	flags.String("db", "data/todoer.db", "path to the sqlite database file")
	_ = a.v.BindPFlag("addr", flags.Lookup("addr"))
	_ = a.v.BindPFlag("static", flags.Lookup("static"))
	_ = a.v.BindPFlag("store.driver", flags.Lookup("store"))
	_ = a.v.BindPFlag("store.path", flags.Lookup("db"))
	return cmd
}

type closer interface {
	Close() error
}

func (a *app) openStore() (docstore.Store, closer, error) {
	switch a.cfg.Store.Driver {
	case "memory":
		s := memory.New(a.logger)
		return s, s, nil
	default:
		s, err := sqlite.Open(a.cfg.Store.Path, a.logger, sqlite.Options{
			Watch:    a.cfg.Store.Watch,
			Debounce: a.cfg.Store.Debounce,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func (a *app) serve() error {
	logger := a.logger
	if err := a.cfg.RequireSecret(); err != nil {
		return err
	}
	auth, err := session.NewAuthenticator(a.cfg.Auth.Secret, a.cfg.Auth.AllowedEmails)
	if err != nil {
		return err
	}

	store, c, err := a.openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer c.Close()

	sess := session.New(logger)
	alerts := server.NewAlerts(logger)
	lists := repository.NewLists(store, sess, alerts, logger)
	tasks := repository.NewTasks(store, sess, alerts, logger)
	live := board.NewLive(lists, tasks, board.Labels{
		Title:       a.cfg.Board.Title,
		NoListName:  a.cfg.Board.NoListName,
		NoListColor: a.cfg.Board.NoListColor,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go live.Run(ctx)

	srv := server.New(server.Deps{
		Session: sess,
		Auth:    auth,
		Lists:   lists,
		Tasks:   tasks,
		Board:   live,
		Alerts:  alerts,
	}, logger, a.cfg.Static)

	httpServer := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", httpServer.Addr),
			slog.String("store", a.cfg.Store.Driver),
			slog.String("version", version))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
