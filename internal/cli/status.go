package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/workbench-context/internal/git"
	"github.com/mvp-joe/workbench-context/internal/storage"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show context history and requested capabilities",
	Long: `Show what has been recorded in the history database:

- The most recently published context and when it was published
- How many snapshots are retained
- The workspace branch and remote
- Capabilities requested through the self-awareness API`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

// statusReport is everything the status command prints.
type statusReport struct {
	Repo         git.Info             `json:"repo"`
	DBPath       string               `json:"dbPath"`
	DBBytes      int64                `json:"dbBytes"`
	Snapshots    int                  `json:"snapshots"`
	Latest       *storage.Snapshot    `json:"latest,omitempty"`
	Capabilities []storage.Capability `json:"capabilities"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := loadRuntime("")
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	history, err := storage.Open(rt.cfg.Storage.DBPath, rt.cfg.Storage.HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	report, err := buildStatus(ctx, history, rt.cfg.Storage.DBPath)
	if err != nil {
		return err
	}

	report.Repo = git.NewInspector().Inspect(ctx, rt.root)

	if statusJSON {
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonBytes))
		return nil
	}

	printStatus(cmd.OutOrStdout(), report, time.Now())
	return nil
}

func buildStatus(ctx context.Context, history *storage.History, dbPath string) (*statusReport, error) {
	report := &statusReport{DBPath: dbPath, Capabilities: []storage.Capability{}}

	if info, err := os.Stat(dbPath); err == nil {
		report.DBBytes = info.Size()
	}

	count, err := history.Count(ctx)
	if err != nil {
		return nil, err
	}
	report.Snapshots = count

	latest, err := history.Latest(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshots):
	case err != nil:
		return nil, err
	default:
		report.Latest = latest
	}

	caps, err := history.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	if caps != nil {
		report.Capabilities = caps
	}

	return report, nil
}

func printStatus(w io.Writer, report *statusReport, now time.Time) {
	if report.Repo.Branch != "" {
		fmt.Fprintf(w, "Branch: %s\n", report.Repo.Branch)
	}
	if report.Repo.Remote != "" {
		fmt.Fprintf(w, "Remote: %s\n", report.Repo.Remote)
	}
	fmt.Fprintf(w, "History: %s (%s)\n", report.DBPath, humanize.Bytes(uint64(report.DBBytes)))
	fmt.Fprintf(w, "Snapshots retained: %s\n", humanize.Comma(int64(report.Snapshots)))

	if report.Latest == nil {
		fmt.Fprintln(w, "Last published: never")
	} else {
		fmt.Fprintf(w, "Last published: %s (%d items, %s prompt)\n",
			humanize.RelTime(report.Latest.CreatedAt, now, "ago", "from now"),
			len(report.Latest.Items),
			humanize.Bytes(uint64(len(report.Latest.Prompt))))
		for _, item := range report.Latest.Items {
			fmt.Fprintf(w, "  - [%s] %s\n", item.Kind, item.Title)
		}
	}

	if len(report.Capabilities) == 0 {
		fmt.Fprintln(w, "Capabilities requested: none")
		return
	}
	fmt.Fprintln(w, "Capabilities requested:")
	for _, c := range report.Capabilities {
		fmt.Fprintf(w, "  - %s: %s, %s, last %s\n",
			c.Name, c.Status,
			english.Plural(c.RequestCount, "request", "requests"),
			humanize.RelTime(c.UpdatedAt, now, "ago", "from now"))
	}
}
