package clipboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	written []string
	err     error
}

func (f *fakeWriter) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, text)
	return nil
}

func TestExport_WritesText(t *testing.T) {
	w := &fakeWriter{}

	assert.True(t, Export(w, "## Current Context", nil))
	assert.Equal(t, []string{"## Current Context"}, w.written)
}

func TestExport_EmptyIsNoop(t *testing.T) {
	w := &fakeWriter{}

	assert.False(t, Export(w, "", nil))
	assert.Empty(t, w.written)
}

func TestExport_SwallowsFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	w := &fakeWriter{err: errors.New("permission denied")}

	assert.NotPanics(t, func() {
		assert.False(t, Export(w, "text", zap.New(core)))
	})
	assert.Equal(t, 1, logs.FilterMessage("clipboard write failed").Len())
}
