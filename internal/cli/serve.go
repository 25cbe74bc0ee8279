package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/daemon"
	"github.com/mvp-joe/workbench-context/internal/git"
	"github.com/mvp-joe/workbench-context/internal/selfaware"
	"github.com/mvp-joe/workbench-context/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workbench context and self-awareness API over HTTP",
	Long: `Load and watch the workspace, keep the context summary current, and serve:

  POST /api/self-awareness   {"action": "...", ...} dispatch
  GET  /api/self-awareness   service status
  GET  /api/context          current items and rendered prompt

Every published context is recorded in the history database.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := loadRuntime("")
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	guard := daemon.NewSingleton("serve", filepath.Join(rt.root, ".wbctx"))
	won, err := guard.Acquire()
	if err != nil {
		return err
	}
	if !won {
		return fmt.Errorf("another wbctx serve is already running for %s (lock: %s)", rt.root, guard.LockPath())
	}
	defer guard.Release()

	addr := rt.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	store, err := rt.openStore()
	if err != nil {
		return err
	}
	defer store.Stop()
	if err := store.Start(ctx); err != nil {
		return err
	}

	history, err := storage.Open(rt.cfg.Storage.DBPath, rt.cfg.Storage.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	extractor := rt.newExtractor()
	excerpt := rt.cfg.Summary.PromptExcerptChars
	updater := rt.newUpdater(store, extractor, newHistoryPublisher(ctx, history, excerpt, rt.log.Named("history")))
	updater.Start(ctx)
	defer updater.Stop()

	svc := selfaware.NewWorkspace(selfaware.WorkspaceOptions{
		Store:     store,
		Dir:       rt.dirOptions(),
		Extractor: extractor,
		Ledger:    history,
		Git:       git.NewInspector(),
		Logger:    rt.log.Named("selfaware"),
	})
	defer svc.Close()

	mux := http.NewServeMux()
	mux.Handle(selfaware.Path, selfaware.NewHandler(svc, rt.log.Named("http")))
	mux.Handle(contextPath, newContextHandler(updater, excerpt))

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	// Graceful shutdown on signal
	go func() {
		<-ctx.Done()
		rt.log.Info("shutdown signal received, shutting down gracefully")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout())
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			rt.log.Warn("HTTP server shutdown error", zap.Error(err))
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", store.Root(), listener.Addr())
	rt.log.Info("server started", zap.String("addr", listener.Addr().String()), zap.String("root", store.Root()))

	// Blocks until Shutdown() is called
	if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
