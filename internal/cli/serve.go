package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CollabBoard/internal/config"
	boardnet "CollabBoard/internal/net"
	"CollabBoard/internal/printer"
	"CollabBoard/internal/relay"
	"CollabBoard/internal/state"
	"CollabBoard/internal/tap"
)

var (
	serveConfigPath string
	serveListen     string
	serveNoMDNS     bool
	serveRedisURL   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay that owns the board",
	Long: `Run the relay. It keeps the only authoritative copy of the board in memory,
sends every new client the full board and relays each edit to everyone else.

The board is lost when the relay stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to collabboard.yml")
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "Listen address (overrides relay.listen)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "Do not advertise the relay over mDNS")
	serveCmd.Flags().StringVar(&serveRedisURL, "redis-url", "", "Publish board events to this Redis (overrides redis.url)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return printer.Error("Invalid configuration", err.Error(), []string{"Check the file passed with --config"})
	}

	level, _ := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Relay.Listen)
	if err != nil {
		return printer.Error(
			fmt.Sprintf("Cannot listen on %s", cfg.Relay.Listen),
			err.Error(),
			[]string{"Pick another address with --listen, e.g. --listen :3002"},
		)
	}

	return serve(ctx, cfg, listener, logger, func(addr string) {
		port := listener.Addr().(*net.TCPAddr).Port
		host, err := boardnet.GetOutgoingIP()
		if err != nil {
			host = "localhost"
		}
		printer.Success("Relay listening on %s\n", addr)
		printer.Info("  Share link: %s\n", boardnet.ShareLink(host, port))
	})
}

// loadServeConfig reads --config if given and applies flag overrides.
func loadServeConfig(cmd *cobra.Command) (*config.BoardConfig, error) {
	cfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.Load(serveConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("listen") {
		cfg.Relay.Listen = serveListen
	}
	if serveNoMDNS {
		disabled := false
		cfg.Discovery.MDNS = &disabled
	}
	if cmd.Flags().Changed("redis-url") {
		cfg.Redis.URL = serveRedisURL
	}
	return cfg, nil
}

// serve runs the relay on listener until ctx is done, then shuts down
// gracefully. ready is called once the relay accepts connections.
func serve(ctx context.Context, cfg *config.BoardConfig, listener net.Listener, logger *slog.Logger, ready func(addr string)) error {
	var seed []state.StickyNote
	if cfg.SeedWelcomeNote() {
		seed = append(seed, state.WelcomeNote())
	}
	store := state.NewStore(seed...)

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	var hubTap relay.Tap
	if cfg.Redis.URL != "" {
		pub, err := tap.Connect(ctx, cfg.Redis.URL, cfg.Redis.Channel, logger)
		if err != nil {
			return fmt.Errorf("failed to start event tap: %w", err)
		}
		hubTap = pub

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Serve(runCtx)
		}()
		logger.Info("publishing board events", "channel", cfg.Redis.Channel)
	}

	hub := relay.NewHub(store, hubTap, logger)
	server := relay.NewServer(hub, relay.Options{
		SendBuffer:      cfg.Relay.SendBuffer,
		PingInterval:    cfg.Heartbeat(),
		MaxMessageBytes: cfg.Relay.MaxMessageBytes,
		Logger:          logger,
	})
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.MDNSEnabled() {
		port := listener.Addr().(*net.TCPAddr).Port
		mdnsServer, err := boardnet.Advertise(cfg.Discovery.Instance, port)
		if err != nil {
			logger.Warn("mDNS advertisement failed, continuing without discovery", "err", err)
		} else {
			defer mdnsServer.Shutdown()
			logger.Info("advertising relay", "service", boardnet.ServiceType, "port", port)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(listener)
	}()
	logger.Info("relay started", "addr", listener.Addr().String())
	if ready != nil {
		ready(listener.Addr().String())
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down relay", "peers", hub.PeerCount())
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down relay: %w", err)
	}
	return nil
}
