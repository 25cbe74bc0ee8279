package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/workbench-context/internal/clipboard"
	"github.com/mvp-joe/workbench-context/internal/summary"
)

var copySelect string

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the rendered context to the clipboard",
	Long: `Extract the context once and copy the rendered prompt block to the system
clipboard. Nothing is copied when there is no context.`,
	RunE: runCopy,
}

func init() {
	rootCmd.AddCommand(copyCmd)
	copyCmd.Flags().StringVar(&copySelect, "select", "", "file to treat as the active selection")
}

func runCopy(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime("")
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	items, err := extractOnce(rt, copySelect)
	if err != nil {
		return err
	}

	return copyItems(cmd, clipboard.System{}, items, rt.cfg.Summary.PromptExcerptChars)
}

func copyItems(cmd *cobra.Command, w clipboard.Writer, items []summary.Item, excerptChars int) error {
	text := summary.RenderWithExcerpt(items, excerptChars)
	if text == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No context to copy")
		return nil
	}
	if !clipboard.Export(w, text, nil) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Clipboard unavailable; context not copied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Copied %d context items (%d chars)\n", len(items), len([]rune(text)))
	return nil
}
