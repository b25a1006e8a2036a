package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	boardnet "CollabBoard/internal/net"
)

// DefaultServer is the relay clients talk to when --server is not given.
const DefaultServer = "ws://localhost:3001/"

var (
	serverFlag string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "collabboard",
	Short: "CollabBoard - a shared whiteboard for the local network",
	Long: `CollabBoard is a real-time collaborative whiteboard. One process runs the
relay, which owns the board; every client mirrors it, applies its own edits
immediately and hears about everyone else's through the relay.

Run "collabboard serve" on one machine, then "collabboard open" (or open the
share link it prints) everywhere else.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI with args, which exclude the program name.
func Execute(args []string) error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.SetArgs(RewriteArgs(args))
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// RewriteArgs lets the OS hand a share link straight to the binary:
// "collabboard collabboard://host:port" becomes "collabboard open collabboard://host:port".
func RewriteArgs(args []string) []string {
	if len(args) > 0 && boardnet.IsShareLink(args[0]) {
		return append([]string{"open"}, args...)
	}
	return args
}

// relayURL resolves a positional server argument, falling back to --server.
func relayURL(args []string) (string, error) {
	target := serverFlag
	if len(args) > 0 {
		target = args[0]
	}
	return boardnet.RelayURL(target)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", DefaultServer, "Relay to connect to (ws:// URL, host:port or share link)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
