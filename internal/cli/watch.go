package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CollabBoard/internal/client"
	"CollabBoard/internal/printer"
	"CollabBoard/internal/protocol"
)

var watchCmd = &cobra.Command{
	Use:   "watch [server]",
	Short: "Follow board activity in the terminal",
	Long: `Connect as a read-only client and print every message the relay sends.
The connection is re-established automatically if the relay goes away.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := relayURL(args)
		if err != nil {
			return printer.Error("Invalid server", err.Error(), nil)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printer.Step("Watching %s (Ctrl+C to stop)\n", url)
		err = watch(ctx, url, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func watch(ctx context.Context, url string, w io.Writer) error {
	link := client.NewLink(url, nil)
	model := client.NewModel(nil, nil, nil)
	link.OnStatus = func(connected bool, err error) {
		if connected {
			printer.Event(w, time.Now(), "connected", url)
		} else {
			printer.Event(w, time.Now(), "lost", err.Error())
		}
	}
	return link.Run(ctx, func(msg protocol.Message) {
		if err := model.Apply(msg); err != nil {
			printer.Event(w, time.Now(), string(msg.Type), "malformed: "+err.Error())
			return
		}
		printer.Event(w, time.Now(), string(msg.Type), summarize(msg, model))
	})
}

// summarize describes msg in one line, using model for board totals.
func summarize(msg protocol.Message, model *client.Model) string {
	switch msg.Type {
	case protocol.KindInit:
		return fmt.Sprintf("%d notes, %d segments", len(model.Notes()), len(model.Drawings()))
	case protocol.KindUpdateNotes:
		notes := model.Notes()
		if len(notes) == 1 {
			return fmt.Sprintf("1 note: %q", notes[0].Text)
		}
		return fmt.Sprintf("%d notes", len(notes))
	case protocol.KindDraw:
		seg, err := msg.Segment()
		if err != nil {
			return err.Error()
		}
		s := fmt.Sprintf("(%g,%g) → (%g,%g)", seg.X0, seg.Y0, seg.X1, seg.Y1)
		if seg.Color != "" {
			s += " " + seg.Color
		}
		return s
	case protocol.KindClearBoard:
		return "drawings cleared"
	}
	return string(msg.Data)
}
