package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/workbench-context/internal/clipboard"
	"github.com/mvp-joe/workbench-context/internal/panel"
	"github.com/mvp-joe/workbench-context/internal/summary"
)

// panelLogFile keeps logs off the terminal while the panel owns it.
const panelLogFile = ".wbctx/panel.log"

var panelSelect string

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Show the live workbench context in the terminal",
	Long: `Open an interactive panel that follows the workspace and shows the context
as it refreshes.

Keys:
  c  copy the rendered prompt to the clipboard
  r  refresh now
  q  quit`,
	RunE: runPanel,
}

func init() {
	rootCmd.AddCommand(panelCmd)
	panelCmd.Flags().StringVar(&panelSelect, "select", "", "file to treat as the active selection")
}

func runPanel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := loadRuntime(panelLogFile)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	store, err := rt.openStore()
	if err != nil {
		return err
	}
	defer store.Stop()
	if err := selectPath(store, panelSelect); err != nil {
		return err
	}
	if err := store.Start(ctx); err != nil {
		return err
	}

	var program *tea.Program
	updater := rt.newUpdater(store, rt.newExtractor(), func(items []summary.Item) {
		program.Send(panel.ItemsMsg{Items: items, At: time.Now()})
	})

	model := panel.New(panel.Options{
		Source:       updater,
		Clipboard:    clipboard.System{},
		ExcerptChars: rt.cfg.Summary.PromptExcerptChars,
		Logger:       rt.log.Named("panel"),
	})
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	updater.Start(ctx)
	defer updater.Stop()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel error: %w", err)
	}
	return nil
}
