// Command gemp-bot runs a single autonomous player against a GEMP-style
// remote game server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swccgarena/gemp-bot/internal/brain/static"
	"github.com/swccgarena/gemp-bot/internal/card"
	"github.com/swccgarena/gemp-bot/internal/config"
	"github.com/swccgarena/gemp-bot/internal/deploy"
	"github.com/swccgarena/gemp-bot/internal/stats"
	"github.com/swccgarena/gemp-bot/internal/transport"
	"github.com/swccgarena/gemp-bot/internal/util"
	"github.com/swccgarena/gemp-bot/internal/worker"
)

// buildVersion is overridden at release build time via -ldflags.
var buildVersion = "dev"

func main() {
	rootCmd := &cobra.Command{Use: "gemp-bot"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(buildVersion)
		},
	}
}

func runCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "connect and run the worker until stopped (the default lobby strategy never selects a table)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", util.EnvOrDefault("GEMPBOT_CONFIG_PATH", ""), "path to the YAML config file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reg, err := card.LoadDir(cfg.CardData.JSONDir)
	if err != nil {
		return err
	}

	client, err := transport.NewClient(cfg.Server.URL, nil, cfg.RequestTimeout(), cfg.GameStateTimeout())
	if err != nil {
		return err
	}

	brain := static.New(reg, deploy.Options{FortificationThreshold: cfg.Evaluator.BattleDangerThreshold})

	w := worker.New(client, reg, brain, worker.Options{
		Username:       cfg.Credentials.Username,
		Password:       cfg.Credentials.Password,
		PollInterval:   cfg.PollInterval(),
		Sink:           stats.LogSink{},
		SnapshotBuffer: util.EnvOrDefaultInt("GEMPBOT_SNAPSHOT_BUFFER", 8),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("brain", brain.GetPersonalityName()).Info("gemp-bot: starting")
	if err := w.Start(ctx); err != nil {
		return err
	}
	log.Info("gemp-bot: stopped")
	return nil
}
