package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CollabBoard/internal/state"
)

func TestWritePDF(t *testing.T) {
	t.Run("empty board", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, state.Snapshot{}))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	})

	t.Run("notes and drawings", func(t *testing.T) {
		snap := state.Snapshot{
			Notes: []state.StickyNote{
				state.WelcomeNote(),
				{ID: state.StringID("b"), Text: "Größe ändern", X: 400, Y: 300, Color: "not-a-color"},
			},
			Drawings: []state.LineSegment{
				{X0: 0, Y0: 0, X1: 10, Y1: 10},
				{X0: 10, Y0: 10, X1: 800, Y1: 600, Color: "#f48fb1"},
			},
		}
		var buf bytes.Buffer
		require.NoError(t, WritePDF(&buf, snap))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		assert.Greater(t, buf.Len(), 500)
	})
}

func TestExportPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.pdf")
	require.NoError(t, ExportPDF(path, state.Snapshot{Notes: []state.StickyNote{state.WelcomeNote()}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	err = ExportPDF(filepath.Join(t.TempDir(), "missing", "board.pdf"), state.Snapshot{})
	assert.Error(t, err)
}
