// streamtest connects to the AIS stream, subscribes once and prints the raw
// feed to the console. It does not reconnect.
// Usage: go run ./cmd/streamtest --config configs/tracker.example.yaml --mmsi 319113100
//
// Required environment variables:
//
//	AISSTREAM_API_KEY - API key from aisstream.io (when referenced by the config)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rickgao/vessel-tracker/internal/config"
	"github.com/rickgao/vessel-tracker/internal/connection"
	"github.com/rickgao/vessel-tracker/internal/feed"
	"github.com/rickgao/vessel-tracker/internal/model"
	"github.com/rickgao/vessel-tracker/internal/roster"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	mmsis := pflag.StringSlice("mmsi", nil, "vessel ids to filter (default: roster from config)")
	verbose := pflag.Bool("verbose", false, "print full message JSON")
	limit := pflag.Int("limit", 0, "exit after this many messages (0 = no limit)")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadWithDefaults(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", "warning", w)
	}

	ids := *mmsis
	if len(ids) == 0 && (cfg.Roster.Path != "" || len(cfg.Roster.Vessels) > 0) {
		var provider roster.Provider
		if cfg.Roster.Path != "" {
			p := roster.NewCSVProvider(cfg.Roster.Path)
			p.Delimiter = cfg.Roster.DelimiterRune()
			p.IDColumn = cfg.Roster.IDColumn
			p.NameColumn = cfg.Roster.NameColumn
			provider = p
		} else {
			static := make(roster.Static, 0, len(cfg.Roster.Vessels))
			for _, v := range cfg.Roster.Vessels {
				static = append(static, model.VesselRef{ID: v.MMSI, DisplayName: v.Name})
			}
			provider = static
		}
		for _, ref := range roster.LoadOrEmpty(provider, logger) {
			ids = append(ids, ref.ID)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := connection.NewClient(connection.ClientConfig{
		URL:              cfg.Feed.URL,
		PingInterval:     cfg.Feed.PingInterval,
		PingTimeout:      cfg.Feed.PingTimeout,
		CloseTimeout:     cfg.Feed.CloseTimeout,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		BufferSize:       cfg.Feed.BufferSize,
	}, logger)

	logger.Info("connecting", "url", cfg.Feed.URL)
	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	sub, err := json.Marshal(feed.NewSubscription(cfg.Feed.APIKey, ids, cfg.Feed.MessageTypes))
	if err != nil {
		logger.Error("failed to encode subscription", "error", err)
		os.Exit(1)
	}
	if err := client.Send(sub); err != nil {
		logger.Error("failed to subscribe", "error", err)
		os.Exit(1)
	}
	logger.Info("subscribed", "vessels", len(ids), "message_types", cfg.Feed.MessageTypes)

	counts := make(map[string]int)
	total := 0

	// Stats printer
	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	logger.Info("streaming started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete", "messages", total, "by_type", counts)
			return

		case err := <-client.Errors():
			logger.Error("stream error", "error", err, "messages", total)
			return

		case <-statsTicker.C:
			logger.Info("stats", "messages", total, "by_type", counts, "last_pong", client.LastPong())

		case msg := <-client.Messages():
			total++
			printMessage(msg, *verbose, counts)
			if *limit > 0 && total >= *limit {
				logger.Info("message limit reached", "messages", total, "by_type", counts)
				return
			}
		}
	}
}

func printMessage(msg connection.TimestampedMessage, verbose bool, counts map[string]int) {
	env, err := feed.Decode(msg.Data)
	if err != nil {
		counts["invalid"]++
		fmt.Printf("[INVALID] %v: %s\n", err, msg.Data)
		return
	}
	counts[env.MessageType]++

	if verbose {
		var pretty json.RawMessage = msg.Data
		data, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("[%s] %s\n", env.MessageType, data)
		return
	}

	if !env.Recognized() {
		fmt.Printf("[%s] mmsi=%s\n", env.MessageType, env.VesselID())
		return
	}
	report, err := env.Report()
	if err != nil {
		fmt.Printf("[%s] mmsi=%s payload error: %v\n", env.MessageType, env.VesselID(), err)
		return
	}
	fmt.Printf("[%s] mmsi=%s name=%q lat=%s lon=%s time=%s\n",
		env.MessageType, env.VesselID(), env.MetaData.ShipName,
		formatCoord(report.Latitude), formatCoord(report.Longitude), env.MetaData.TimeUTC)
}

func formatCoord(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.5f", *v)
}
