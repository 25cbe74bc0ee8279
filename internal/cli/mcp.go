package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/git"
	"github.com/mvp-joe/workbench-context/internal/selfaware"
	"github.com/mvp-joe/workbench-context/internal/storage"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for workbench context",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can read
the workbench context.

Tools:
- workbench_context: the current context as a prompt block or JSON
- self_awareness:    the self-awareness actions (get-status, open-source-workspace,
                     implement-capability, analyze-source)

Communicates via stdio (standard MCP transport). Logs go to stderr.

Example:
  wbctx mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := loadRuntime("")
	if err != nil {
		return err
	}
	defer rt.log.Sync()

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
	updater := rt.newUpdater(store, extractor, nil)
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

	mcpServer := server.NewMCPServer(
		"wbctx",
		Version,
		server.WithToolCapabilities(true),
	)
	selfaware.AddSelfAwarenessTool(mcpServer, svc)
	selfaware.AddContextTool(mcpServer, updater, rt.cfg.Summary.PromptExcerptChars)

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("starting MCP server on stdio", zap.String("root", store.Root()))
		if err := server.ServeStdio(mcpServer); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		rt.log.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	}
}
