package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/storage"
	"github.com/mvp-joe/workbench-context/internal/summary"
)

// contextPath serves the currently published context.
const contextPath = "/api/context"

// contextView is the read side of the Updater used by the HTTP API.
type contextView interface {
	Items() []summary.Item
	Analyzing() bool
	LastRefreshed() time.Time
}

type contextResponse struct {
	Items     []summary.Item `json:"items"`
	Prompt    string         `json:"prompt"`
	Analyzing bool           `json:"analyzing"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func newContextHandler(view contextView, excerptChars int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		items := view.Items()
		if items == nil {
			items = []summary.Item{}
		}
		resp := contextResponse{
			Items:     items,
			Prompt:    summary.RenderWithExcerpt(items, excerptChars),
			Analyzing: view.Analyzing(),
		}
		if at := view.LastRefreshed(); !at.IsZero() {
			resp.UpdatedAt = &at
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// snapshotRecorder is the part of storage.History the publisher needs.
type snapshotRecorder interface {
	Record(ctx context.Context, items []summary.Item, prompt string) (string, error)
}

var _ snapshotRecorder = (*storage.History)(nil)

// newHistoryPublisher returns an Updater callback that records every
// published list. Failures are logged; publication never blocks on them.
func newHistoryPublisher(ctx context.Context, rec snapshotRecorder, excerptChars int, log *zap.Logger) func([]summary.Item) {
	return func(items []summary.Item) {
		id, err := rec.Record(ctx, items, summary.RenderWithExcerpt(items, excerptChars))
		if err != nil {
			log.Warn("failed to record context snapshot", zap.Error(err))
			return
		}
		log.Debug("recorded context snapshot", zap.String("snapshot_id", id), zap.Int("items", len(items)))
	}
}
