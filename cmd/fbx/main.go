// Command fbx pairs with a Freebox-style gateway and manages the session.
//
// Usage:
//
//	fbx auth login           Register and wait for approval on the device
//	fbx auth status          Show the stored credentials
//	fbx auth token           Print a valid session token, renewing if needed
//	fbx auth renew           Open a new session
//	fbx auth logout          Close the session
//	fbx auth reset           Forget the application
//	fbx version              Show the device API version
//	fbx log view <file>      View a protocol log
//	fbx log export <file>    Export a protocol log to jsonl or csv
//	fbx log stats <file>     Show protocol log statistics
//
// Settings are read from $XDG_CONFIG_HOME/fbx/config.yaml and FBX_*
// environment variables; see package config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/fbxctl/fbx-go/cmd/fbx/commands"
	"github.com/fbxctl/fbx-go/pkg/auth"
	"github.com/fbxctl/fbx-go/pkg/config"
)

// Set by the linker.
var buildVersion = "dev"

type globalFlags struct {
	configPath  string
	baseURL     string
	apiVersion  string
	logLevel    string
	protocolLog string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if hint := commands.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "fbx",
		Short:         "Pair with the gateway and manage API sessions",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultPath(), "config file")
	pf.StringVar(&flags.baseURL, "base-url", "", "device URL (overrides config)")
	pf.StringVar(&flags.apiVersion, "api-version", "", "API major version, e.g. v8 (overrides config)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	pf.StringVar(&flags.protocolLog, "protocol-log", "", "record every exchange to this file")

	cmd.AddCommand(authCmd(flags))
	cmd.AddCommand(versionCmd(flags))
	cmd.AddCommand(logCmd())
	return cmd
}

// loadConfig applies the command line on top of file and environment.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.apiVersion != "" {
		cfg.APIVersion = flags.apiVersion
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.protocolLog != "" {
		cfg.ProtocolLog = flags.protocolLog
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// withApp builds the App for one command run.
func withApp(flags *globalFlags, run func(ctx context.Context, app *commands.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		progress := func(s auth.AuthorizationStatus) {
			if !s.Terminal() {
				logger.Info("waiting for approval on the device", slog.String("status", s.String()))
			}
		}

		app, err := commands.NewApp(cfg, logger, progress)
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd.Context(), app)
	}
}

func authCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the application pairing and session",
	}

	var resume bool
	login := &cobra.Command{
		Use:   "login",
		Short: "Register the application and wait for approval on the device",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunLogin(ctx, app, os.Stdout, resume)
		}),
	}
	login.Flags().BoolVar(&resume, "resume", false, "keep polling a registration left pending by an earlier run")

	cmd.AddCommand(login)
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the stored credentials and session state",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunStatus(ctx, app, os.Stdout)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "token",
		Short: "Print a valid session token, renewing it if needed",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunToken(ctx, app, os.Stdout)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "renew",
		Short: "Open a new session",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunRenew(ctx, app, os.Stdout)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Close the session on the device",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunLogout(ctx, app, os.Stdout)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the stored application and session",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(_ context.Context, app *commands.App) error {
			return commands.RunReset(app, os.Stdout)
		}),
	})
	return cmd
}

func versionCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the device API version",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *commands.App) error {
			return commands.RunVersion(ctx, app, os.Stdout)
		}),
	}
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect protocol log files",
	}

	var opts commands.LogFilterOptions
	addFilterFlags := func(c *cobra.Command) {
		f := c.Flags()
		f.StringVar(&opts.RequestID, "request-id", "", "filter by request ID")
		f.StringVar(&opts.AppID, "app-id", "", "filter by app ID")
		f.StringVar(&opts.Layer, "layer", "", "filter by layer (transport, auth)")
		f.StringVar(&opts.Direction, "direction", "", "filter by direction (in, out)")
		f.StringVar(&opts.Category, "category", "", "filter by category (message, state, error)")
		f.StringVar(&opts.TimeStart, "time-start", "", "filter by start time (RFC3339)")
		f.StringVar(&opts.TimeEnd, "time-end", "", "filter by end time (RFC3339)")
	}

	view := &cobra.Command{
		Use:   "view <file.flog>",
		Short: "View a log file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Filter()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, os.Stdout)
		},
	}
	addFilterFlags(view)

	var format, output string
	export := &cobra.Command{
		Use:   "export <file.flog>",
		Short: "Export a log file to jsonl or csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := opts.Filter()
			if err != nil {
				return err
			}
			return commands.RunExport(args[0], format, output, filter)
		},
	}
	addFilterFlags(export)
	export.Flags().StringVar(&format, "format", "jsonl", "output format (jsonl, csv)")
	export.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	stats := &cobra.Command{
		Use:   "stats <file.flog>",
		Short: "Show statistics about a log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], os.Stdout)
		},
	}

	cmd.AddCommand(view, export, stats)
	return cmd
}
