package cli

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"CollabBoard/internal/client"
	"CollabBoard/internal/export"
	"CollabBoard/internal/printer"
	"CollabBoard/internal/protocol"
	"CollabBoard/internal/state"
)

const connectTimeout = 5 * time.Second

var (
	noteText  string
	noteColor string
	noteX     float64
	noteY     float64
	drawColor string
	exportOut string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "List, add or remove sticky notes",
}

var noteListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the notes on the board",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(m *client.Model) error {
			notes := m.Notes()
			if len(notes) == 0 {
				printer.Info("No notes on the board.\n")
				return nil
			}
			for _, n := range notes {
				printer.Info("%-38s %-8s (%4.0f,%4.0f)  %s\n", n.ID.String(), n.Color, n.X, n.Y, n.Text)
			}
			return nil
		})
	},
}

var noteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a sticky note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(m *client.Model) error {
			note := newNote(cmd, rand.New(rand.NewSource(time.Now().UnixNano())))
			m.AddNote(note)
			printer.Success("Added note %s\n", note.ID.String())
			return nil
		})
	},
}

var noteRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a sticky note",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := state.ParseNoteID(args[0])
		return withBoard(cmd, func(m *client.Model) error {
			if !hasNote(m.Notes(), id) {
				printer.Warning("No note %s on the board, asking the relay anyway\n", id.String())
			}
			m.DeleteNote(id)
			printer.Success("Removed note %s\n", id.String())
			return nil
		})
	},
}

var drawCmd = &cobra.Command{
	Use:   "draw <x0> <y0> <x1> <y1>",
	Short: "Draw a line segment",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var coords [4]float64
		for i, a := range args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return printer.Error("Invalid coordinate", fmt.Sprintf("%q is not a number", a), nil)
			}
			coords[i] = v
		}
		return withBoard(cmd, func(m *client.Model) error {
			drawLine(m, coords, drawColor)
			printer.Success("Drew (%g,%g) → (%g,%g)\n", coords[0], coords[1], coords[2], coords[3])
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase every drawing on the board (notes stay)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(m *client.Model) error {
			m.ClearBoard()
			printer.Success("Cleared the drawings\n")
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the board as a PDF",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBoard(cmd, func(m *client.Model) error {
			snap := state.Snapshot{Notes: m.Notes(), Drawings: m.Drawings()}
			if err := export.ExportPDF(exportOut, snap); err != nil {
				return printer.Error("Export failed", err.Error(), nil)
			}
			printer.Success("Saved %d notes and %d segments to %s\n", len(snap.Notes), len(snap.Drawings), exportOut)
			return nil
		})
	},
}

func init() {
	noteAddCmd.Flags().StringVarP(&noteText, "text", "t", "New Idea", "Note text")
	noteAddCmd.Flags().StringVar(&noteColor, "color", "", "Note color (default: random from the palette)")
	noteAddCmd.Flags().Float64Var(&noteX, "x", 0, "X position (default: random)")
	noteAddCmd.Flags().Float64Var(&noteY, "y", 0, "Y position (default: random)")
	noteCmd.AddCommand(noteListCmd, noteAddCmd, noteRemoveCmd)

	drawCmd.Flags().StringVar(&drawColor, "color", "", "Stroke color")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "collab-board.pdf", "Output file")

	rootCmd.AddCommand(noteCmd, drawCmd, clearCmd, exportCmd)
}

// withBoard connects to the relay, waits for the board snapshot and hands
// fn a model mirroring it. Edits fn makes are sent before returning.
func withBoard(cmd *cobra.Command, fn func(m *client.Model) error) error {
	url, err := relayURL(nil)
	if err != nil {
		return printer.Error("Invalid --server", err.Error(), nil)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var fnErr error
	err = runOnBoard(ctx, url, func(m *client.Model) error {
		fnErr = fn(m)
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return printer.Error("Cannot reach relay", err.Error(), []string{
			"Start one with: collabboard serve",
			"Point at another relay with --server",
		})
	}
	return nil
}

func runOnBoard(ctx context.Context, url string, fn func(m *client.Model) error) error {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	sess, err := client.Dial(dialCtx, url)
	if err != nil {
		return err
	}
	_ = sess.SetReadDeadline(time.Now().Add(connectTimeout))
	msg, err := sess.Receive()
	if err != nil {
		_ = sess.Close()
		return fmt.Errorf("failed to receive board: %w", err)
	}
	if msg.Type != protocol.KindInit {
		_ = sess.Close()
		return fmt.Errorf("expected %s from relay, got %s", protocol.KindInit, msg.Type)
	}

	m := client.NewModel(sess, nil, nil)
	if err := m.Apply(msg); err != nil {
		_ = sess.Close()
		return err
	}
	if err := fn(m); err != nil {
		_ = sess.Close()
		return err
	}
	if err := sess.Drain(connectTimeout); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func newNote(cmd *cobra.Command, rng *rand.Rand) state.StickyNote {
	note := state.RandomNote(rng)
	note.Text = noteText
	if noteColor != "" {
		note.Color = noteColor
	}
	if cmd.Flags().Changed("x") {
		note.X = noteX
	}
	if cmd.Flags().Changed("y") {
		note.Y = noteY
	}
	return note
}

func drawLine(m *client.Model, c [4]float64, color string) {
	m.PenColor = color
	m.PointerDown(c[0], c[1])
	m.PointerMove(c[2], c[3])
	m.PointerUp()
}

func hasNote(notes []state.StickyNote, id state.NoteID) bool {
	for _, n := range notes {
		if n.ID == id {
			return true
		}
	}
	return false
}
