// Package commands implements the fbx CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fbxctl/fbx-go/pkg/api"
	"github.com/fbxctl/fbx-go/pkg/auth"
	"github.com/fbxctl/fbx-go/pkg/config"
	"github.com/fbxctl/fbx-go/pkg/log"
	"github.com/fbxctl/fbx-go/pkg/persistence"
	"github.com/fbxctl/fbx-go/pkg/transport"
	"github.com/fbxctl/fbx-go/pkg/version"
)

// App bundles the components built from a Config.
type App struct {
	Config  config.Config
	Client  *api.Client
	Store   *persistence.FileStore
	Manager *auth.Manager
	Logger  *slog.Logger

	traceFile *log.FileLogger
}

// NewApp wires the transport, store and manager. onProgress may be nil.
func NewApp(cfg config.Config, logger *slog.Logger, onProgress func(auth.AuthorizationStatus)) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := &App{Config: cfg, Logger: logger}

	sinks := log.NewMultiLogger()
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLoggerWithConfig(log.FileLoggerConfig{
			Path:    cfg.ProtocolLog,
			MaxSize: cfg.ProtocolLogMaxSize,
		})
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		app.traceFile = fl
		sinks.Route(fl, log.Filter{})
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		// Console gets transport exchanges only.
		exchanges := log.LayerTransport
		sinks.Route(log.NewSlogAdapter(logger), log.Filter{Layer: &exchanges})
	}
	var plog log.Logger
	if sinks.Len() > 0 {
		plog = sinks
	}

	tr, err := transport.NewClient(transport.ClientConfig{
		BaseURL:        cfg.BaseURL,
		APIPath:        version.BasePath(cfg.APIMajor()),
		Timeout:        cfg.RequestTimeout,
		UserAgent:      cfg.AppName + "/" + cfg.AppVersion,
		Logger:         logger,
		ProtocolLogger: plog,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Client = api.NewClient(tr)

	app.Store = persistence.NewFileStore(cfg.StatePath())
	if cfg.SecretBackend == config.SecretBackendKeyring {
		app.Store.SetSecretStore(persistence.NewKeyringSecrets(persistence.DefaultKeyringService))
	}

	app.Manager, err = auth.NewManager(auth.ManagerConfig{
		Device: app.Client,
		Store:  app.Store,
		Identity: auth.Identity{
			AppID:      cfg.AppID,
			AppName:    cfg.AppName,
			AppVersion: cfg.AppVersion,
			DeviceName: cfg.DeviceName,
		},
		PollInterval:   cfg.PollInterval,
		OnProgress:     onProgress,
		Logger:         logger,
		ProtocolLogger: plog,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Close flushes the protocol log.
func (a *App) Close() error {
	if a.traceFile == nil {
		return nil
	}
	err := a.traceFile.Close()
	a.traceFile = nil
	return err
}

// Hint returns a one-line suggestion for err, or "".
func Hint(err error) string {
	switch auth.RemedyFor(err) {
	case auth.RemedyRepair:
		return "run `fbx auth login` and approve the request on the device"
	case auth.RemedyRetry:
		return "the device had a transient problem, try again later"
	case auth.RemedyCheckNetwork:
		if errors.Is(err, transport.ErrUnreachable) {
			return "check that the device is reachable at the configured base_url"
		}
		return "the device did not answer in time, check the network"
	case auth.RemedyCheckConfig:
		return "check base_url and api_version in the configuration"
	default:
		return ""
	}
}
