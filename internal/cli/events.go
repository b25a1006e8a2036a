package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"CollabBoard/internal/config"
	"CollabBoard/internal/printer"
	"CollabBoard/internal/tap"
)

var (
	eventsRedisURL string
	eventsChannel  string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow the relay's Redis event tap",
	Long: `Subscribe to the channel a relay started with --redis-url publishes to and
print each applied mutation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := redis.ParseURL(eventsRedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return printer.Error("Redis connection failed",
				fmt.Sprintf("Could not connect to Redis at %s", opts.Addr),
				[]string{"Check --redis-url"})
		}

		events, err := tap.Subscribe(ctx, rdb, eventsChannel)
		if err != nil {
			return err
		}
		printer.Step("Subscribed to %s\n", eventsChannel)
		for ev := range events {
			printer.Event(os.Stdout, time.UnixMilli(ev.AtMS), string(ev.Type), string(ev.Data))
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsRedisURL, "redis-url", "redis://localhost:6379/0", "Redis to subscribe to")
	eventsCmd.Flags().StringVar(&eventsChannel, "channel", config.DefaultRedisChannel, "Channel the relay publishes to")
	rootCmd.AddCommand(eventsCmd)
}
