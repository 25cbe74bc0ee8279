package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/workbench-context/internal/summary"
)

var (
	summarizeSelect string
	summarizeFormat string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print the workbench context once",
	Long: `Load the workspace, extract the context once and print it.

Formats:
  text   the rendered prompt block (default)
  json   items and prompt as JSON
  yaml   items and prompt as YAML

Example:
  wbctx summarize --select internal/server/server.go`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&summarizeSelect, "select", "", "file to treat as the active selection")
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "text", "output format: text, json, yaml")
}

// summaryOutput is the structured form of a one-shot summary.
type summaryOutput struct {
	Items  []summary.Item `json:"items" yaml:"items"`
	Prompt string         `json:"prompt" yaml:"prompt"`
}

func runSummarize(cmd *cobra.Command, args []string) error {
	switch summarizeFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", summarizeFormat)
	}

	rt, err := loadRuntime("")
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	items, err := extractOnce(rt, summarizeSelect)
	if err != nil {
		return err
	}

	return writeSummary(cmd.OutOrStdout(), items, rt.cfg.Summary.PromptExcerptChars, summarizeFormat)
}

// extractOnce loads the workspace, applies selection and runs the extractor once.
func extractOnce(rt *runtime, selection string) ([]summary.Item, error) {
	store, err := rt.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Stop()

	if err := selectPath(store, selection); err != nil {
		return nil, err
	}

	return rt.newExtractor().Extract(store.Snapshot()), nil
}

func writeSummary(w io.Writer, items []summary.Item, excerptChars int, format string) error {
	prompt := summary.RenderWithExcerpt(items, excerptChars)
	if items == nil {
		items = []summary.Item{}
	}
	out := summaryOutput{Items: items, Prompt: prompt}

	switch format {
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, prompt)
		return err
	}
}
