package cli

import (
	"time"

	"github.com/spf13/cobra"

	boardnet "CollabBoard/internal/net"
	"CollabBoard/internal/printer"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find relays on the local network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer.Step("Browsing for %s (%s)\n", boardnet.ServiceType, discoverTimeout)
		found := 0
		err := boardnet.Browse(discoverTimeout, func(r boardnet.Relay) {
			found++
			printer.Success("%s at %s\n", r.Instance, r.Addr)
			printer.Info("    collabboard open %s%s\n", boardnet.Scheme, r.Addr)
		})
		if err != nil {
			return printer.Error("Discovery failed", err.Error(), []string{"Connect directly with --server ws://host:3001/"})
		}
		if found == 0 {
			printer.Warning("No relays found\n")
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVarP(&discoverTimeout, "timeout", "t", boardnet.DefaultBrowseTimeout, "How long to listen for answers")
	rootCmd.AddCommand(discoverCmd)
}
