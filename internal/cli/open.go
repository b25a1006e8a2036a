package cli

import (
	"github.com/spf13/cobra"

	boardnet "CollabBoard/internal/net"
	"CollabBoard/internal/printer"
	"CollabBoard/internal/ui"
)

var openCmd = &cobra.Command{
	Use:   "open [server | share link]",
	Short: "Open the whiteboard window",
	Long: `Open the desktop whiteboard on a relay. The relay may be given as a ws:// URL,
a host:port pair or a collabboard:// share link; without one, --server is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := relayURL(args)
		if err != nil {
			return printer.Error("Invalid server", err.Error(), []string{
				"Use a share link such as collabboard://192.168.1.20:3001",
				"Or find relays with: collabboard discover",
			})
		}
		share := ""
		if len(args) > 0 && boardnet.IsShareLink(args[0]) {
			share = args[0]
		}
		ui.RunApp(url, share)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openCmd)
}
