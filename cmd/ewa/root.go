package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/ewa-agent/config"
	"github.com/sweetpotato0/ewa-agent/pkg/logging"
	"github.com/sweetpotato0/ewa-agent/pkg/telemetry"
)

const version = "0.1.0"

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string

	settings *config.Settings
	shutdown func()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ewa",
		Short:         "Question answering over SAP EarlyWatch Alert reports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.shutdown != nil {
				opts.shutdown()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to the environment variables file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides EWA_LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (json, text); overrides EWA_LOG_FORMAT")

	cmd.AddCommand(
		newIngestCmd(opts),
		newAskCmd(opts),
		newBatchCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	s, err := config.Load(o.envFile)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	o.settings = s

	if o.logLevel != "" || o.logFormat != "" {
		format := o.logFormat
		if format == "" {
			format = os.Getenv("EWA_LOG_FORMAT")
		}
		level := o.logLevel
		if level == "" {
			level = os.Getenv("EWA_LOG_LEVEL")
		}
		logging.SetLogger(logging.New(format, level, os.Stderr))
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		ServiceName:    "ewa-agent",
		ServiceVersion: version,
		Endpoint:       s.OTLPEndpoint,
		Stdout:         s.TraceStdout,
	})
	if err != nil {
		return err
	}
	o.shutdown = func() {
		if err := shutdown(context.Background()); err != nil {
			logging.WithComponent("telemetry").Warn("flush spans", "error", err)
		}
	}
	return nil
}
