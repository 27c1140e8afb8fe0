package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buswatch.io/buswatch/cmd/buswatch-hub/app/options"
	"buswatch.io/buswatch/internal/hub/server"
	"buswatch.io/buswatch/pkg/log"
)

const (
	commandName = "buswatch-hub"
	commandDesc = `The buswatch hub is the real-time tracking core of the fleet platform.
It terminates WebSocket connections from passengers and drivers, validates
and persists driver position reports, and fans accepted updates out to the
vehicle's subscribers. An optional MQTT bridge ingests reports from
telemetry units and mirrors accepted updates for external consumers.`
)

// NewHubCommand builds the root cobra command of the hub binary.
func NewHubCommand() *cobra.Command {
	opts := options.NewHubOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Launch the buswatch tracking hub",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				if err := loadConfigFile(configFile, opts); err != nil {
					return err
				}
			}

			if err := opts.Complete(); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			log.Init(opts.Log)

			return run(opts)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file.")
	opts.AddFlags(cmd.Flags())

	return cmd
}

// loadConfigFile merges a YAML/JSON/TOML configuration file under the
// already-registered defaults. Flags set on the command line win.
func loadConfigFile(path string, opts *options.HubOptions) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func run(opts *options.HubOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	mgr, err := server.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create hub server: %w", err)
	}

	return mgr.Start(ctx)
}
