package summary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mvp-joe/workbench-context/internal/workbench"
)

// ErrMalformedRecord indicates a file table entry that cannot be read.
var ErrMalformedRecord = errors.New("malformed file record")

// ExtractorOptions configures extraction limits. Zero values use the defaults.
type ExtractorOptions struct {
	FileExcerptChars int
	ProjectMaxFiles  int
	Logger           *zap.Logger
}

// Extractor builds context items from a workbench snapshot.
type Extractor struct {
	fileExcerptChars int
	projectMaxFiles  int
	log              *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	e := &Extractor{
		fileExcerptChars: opts.FileExcerptChars,
		projectMaxFiles:  opts.ProjectMaxFiles,
		log:              opts.Logger,
	}
	if e.fileExcerptChars <= 0 {
		e.fileExcerptChars = DefaultFileExcerptChars
	}
	if e.projectMaxFiles <= 0 {
		e.projectMaxFiles = DefaultProjectMaxFiles
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Extract returns the context items for snap, highest relevance first.
// Problems with individual entries are logged and skipped; Extract never
// fails as a whole.
func (e *Extractor) Extract(snap workbench.Snapshot) []Item {
	var items []Item

	if item, err := e.activeFile(snap); err != nil {
		e.log.Warn("skipping active file context", zap.String("path", snap.Selected), zap.Error(err))
	} else if item != nil {
		items = append(items, *item)
	}

	if item, err := e.projectOverview(snap); err != nil {
		e.log.Warn("skipping project context", zap.Error(err))
	} else if item != nil {
		items = append(items, *item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})

	return items
}

// activeFile builds the item for the selected file, if it is readable text.
func (e *Extractor) activeFile(snap workbench.Snapshot) (item *Item, err error) {
	defer recoverInto(&err)

	if snap.Selected == "" {
		return nil, nil
	}

	record, ok := snap.Lookup(snap.Selected)
	if !ok {
		return nil, nil
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s has no data", ErrMalformedRecord, snap.Selected)
	}
	if !record.IsText() {
		return nil, nil
	}

	return &Item{
		ID:        fileItemID(snap.Selected),
		Kind:      KindFile,
		Title:     snap.Selected,
		Content:   truncate(record.Content, e.fileExcerptChars),
		Relevance: RelevanceActiveFile,
	}, nil
}

// projectOverview lists the first file entries of the table.
func (e *Extractor) projectOverview(snap workbench.Snapshot) (item *Item, err error) {
	defer recoverInto(&err)

	lines := make([]string, 0, e.projectMaxFiles)
	for _, path := range snap.Paths {
		if len(lines) == e.projectMaxFiles {
			break
		}

		record, ok := snap.Lookup(path)
		if !ok || record == nil {
			e.log.Warn("skipping file entry", zap.String("path", path), zap.Error(ErrMalformedRecord))
			continue
		}
		if record.Kind != workbench.KindFile {
			continue
		}

		lines = append(lines, fmt.Sprintf("%s (%s, %d chars)", path, extension(path), charCount(record.Content)))
	}

	if len(lines) == 0 {
		return nil, nil
	}

	return &Item{
		ID:        projectItemID,
		Kind:      KindProject,
		Title:     "Project Files",
		Content:   strings.Join(lines, "\n"),
		Relevance: RelevanceProject,
	}, nil
}

// extension returns the text after the last dot in path, or "unknown".
func extension(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 || idx == len(path)-1 {
		return "unknown"
	}
	return path[idx+1:]
}

// recoverInto turns a panic in an extraction step into an error so one bad
// entry cannot take the pass down.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformedRecord, r)
	}
}
