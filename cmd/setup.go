package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/profsim/profsim/internal/api"
	"github.com/profsim/profsim/internal/auth"
	"github.com/profsim/profsim/internal/config"
	"github.com/profsim/profsim/internal/logging"
	"github.com/profsim/profsim/internal/session"
	"github.com/profsim/profsim/internal/store"
)

// tokenFileName is the default file credential under the data directory.
const tokenFileName = "token.json"

// env is what every command that talks to the server needs.
type env struct {
	cfg    config.Config
	dbPath string
	log    *zap.Logger
	store  *store.Store
	auth   *auth.Session
	client *api.Client
}

// setup loads config, opens the store and builds the authenticated client.
// The caller must Close the returned env.
func setup(cmd *cobra.Command) (*env, error) {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbPath, err := resolveDBPath(cmd, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tokenFile := cfg.Auth.TokenFile
	if tokenFile == "" {
		dir, err := store.DataDir()
		if err != nil {
			st.Close()
			return nil, err
		}
		tokenFile = filepath.Join(dir, tokenFileName)
	}

	creds := auth.NewSession(log.Named("auth"),
		auth.NewEnvProvider(cfg.Auth.TokenEnv),
		auth.NewStoreProvider(st.CredentialRepo(), auth.DefaultSlot),
		auth.NewFileProvider(tokenFile, cfg.Auth.TokenTTL),
	)
	creds.Init(ctx)

	client := api.New(cfg.API.BaseURL, creds,
		api.WithTimeout(cfg.API.RequestTimeout),
		api.WithRetry(api.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			InitialWait: cfg.Retry.InitialWait,
			MaxWait:     cfg.Retry.MaxWait,
			Multiplier:  cfg.Retry.Multiplier,
		}),
		api.WithLogger(log.Named("api")),
	)

	log.Debug("client ready",
		zap.String("base_url", client.BaseURL()),
		zap.String("db", dbPath),
		zap.String("mode", cfg.API.Mode),
		zap.Bool("authenticated", creds.Authenticated()),
	)

	return &env{cfg: cfg, dbPath: dbPath, log: log, store: st, auth: creds, client: client}, nil
}

// loadConfig applies --config, --api-url and --plain on top of the loaded
// configuration and validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if u, _ := cmd.Flags().GetString("api-url"); u != "" {
		cfg.API.BaseURL = u
	}
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		cfg.API.Mode = string(session.ModePlain)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (e *env) Close() {
	_ = e.log.Sync()
	e.store.Close()
}

// mode is the configured session mode.
func (e *env) mode() session.Mode {
	return session.Mode(e.cfg.API.Mode)
}

// sessionOptions returns the options shared by CLI and TUI sessions.
func (e *env) sessionOptions() session.Options {
	return session.Options{
		Mode:     e.mode(),
		Recorder: e.store.EventRepo(),
		Logger:   e.log.Named("session"),
	}
}

// requireLogin fails early when no credential is held.
func (e *env) requireLogin() error {
	if !e.auth.Authenticated() {
		return fmt.Errorf("not logged in: run 'profsim login' or set %s", e.cfg.Auth.TokenEnv)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
