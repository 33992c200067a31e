// Command spongyctl inspects and exercises the BungeeCord plugin-messaging
// protocol.
//
// It can:
// - encode request frames and decode request or reply frames (hex),
// - show the effective runtime configuration, and
// - run a simulated backend against an in-memory proxy, with the status
//   endpoint and NDJSON telemetry enabled from config.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"spongycord/internal/packetlog"
)

var (
	runID        = packetlog.NewRunID()
	flagLogLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spongyctl",
		Short:         "BungeeCord plugin-message toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return setupLogging(flagLogLevel)
		},
	}
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level, {debug, info, warn, error}; overrides log.level")

	root.AddCommand(
		newEncodeCmd(),
		newDecodeRequestCmd(),
		newDecodeReplyCmd(),
		newSplitCmd(),
		newConfigCmd(),
		newSimulateCmd(),
	)
	return root
}

func setupLogging(level string) error {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("invalid --log-level %q: %w", level, err)
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})).With("run_id", runID))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("spongyctl failed", "err", err)
		os.Exit(1)
	}
}
