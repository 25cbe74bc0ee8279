// Package clipboard exports rendered context to the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// Writer accepts text for the clipboard.
type Writer interface {
	WriteAll(text string) error
}

// System writes to the OS clipboard.
type System struct{}

// WriteAll implements Writer.
func (System) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether a clipboard utility was found on this system.
func Available() bool {
	return !clipboard.Unsupported
}

// Export writes text to w. Empty text means there is nothing to copy and is
// a no-op. Write failures are logged and otherwise ignored; it reports
// whether the text was written.
func Export(w Writer, text string, log *zap.Logger) bool {
	if text == "" {
		return false
	}
	if err := w.WriteAll(text); err != nil {
		if log != nil {
			log.Debug("clipboard write failed", zap.Error(err))
		}
		return false
	}
	return true
}
