package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/srpgate/internal/client/client"
	"github.com/dmitrijs2005/srpgate/internal/client/config"
	"github.com/dmitrijs2005/srpgate/internal/client/services"
	"github.com/dmitrijs2005/srpgate/internal/client/session"
	"github.com/dmitrijs2005/srpgate/internal/logging"
	"github.com/dmitrijs2005/srpgate/internal/srp"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	store       *session.Store
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	email       string
	authed      atomic.Bool
}

// NewApp builds the engine, the API client for cfg.Transport and the auth
// service. Nothing is dialled until the first request.
func NewApp(cfg *config.Config, logger logging.Logger) (*App, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engine, err := srp.New(opts...)
	if err != nil {
		return nil, err
	}

	apiClient, err := newAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	store := session.NewStore()
	as := services.NewAuthService(apiClient, engine, store, services.Options{
		RequiredRole:       cfg.RequiredRole,
		RequireServerProof: cfg.RequireServerProof,
		OTPResendInterval:  cfg.OTPResendInterval,
		Logger:             logger,
	})

	return &App{
		config:      cfg,
		authService: as,
		store:       store,
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

func newAPIClient(cfg *config.Config) (client.Client, error) {
	switch cfg.Transport {
	case config.TransportHTTP:
		return client.NewHTTPClient(cfg.ServerURL, client.WithHTTPTimeout(cfg.RequestTimeout)), nil
	case config.TransportGRPC:
		return client.NewGRPCClient(cfg.ServerURL, cfg.RequestTimeout)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.authed.Load()
}

// watchSession mirrors the store's authentication flag into the prompt and
// reports when a session starts or ends.
func (a *App) watchSession(ctx context.Context) {
	updates, cancel := a.authService.Subscribe()
	defer cancel()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}
			if a.authed.Swap(v) != v {
				if v {
					a.logger.Info(ctx, "session started")
				} else {
					a.logger.Info(ctx, "session ended")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
