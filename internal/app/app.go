// Package app wires the EagleChat server together: configuration, storage,
// the credential vault, provider clients, signing middleware, and the HTTP
// surface.
package app

import (
	"eaglechat-server/internal/auth"
	"eaglechat-server/internal/common/logging"
	"eaglechat-server/internal/config"
	"eaglechat-server/internal/crypto"
	"eaglechat-server/internal/locks"
	"eaglechat-server/internal/providers"
	"eaglechat-server/internal/redis"
	"eaglechat-server/internal/retry"
	"eaglechat-server/internal/signature"
	"eaglechat-server/internal/storage"
	"eaglechat-server/internal/vault"
	"eaglechat-server/internal/wordpress"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Store       storage.Store
	Vault       *vault.Vault
	Providers   *providers.Service
	WordPress   *wordpress.Client
	Auth        *auth.Auth
	Validator   *signature.Validator
	ClockGuard  *signature.ClockGuard
	RedisClient *redis.Client
	Locks       locks.Manager
	Encryptor   *crypto.SecretEncryptor
	Logger      logging.Logger
	shutdownCh  chan struct{}
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config:     cfg,
		Logger:     logging.GetGlobalLogger().WithFields(logging.Field{"component", "app"}),
		shutdownCh: make(chan struct{}),
	}

	if err := providers.ValidateModels(); err != nil {
		return nil, err
	}

	// Initialize components in order of dependency
	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{"error", err.Error()})
	}

	if app.RedisClient != nil {
		lockManager, err := locks.NewManager(app.RedisClient)
		if err != nil {
			return nil, err
		}
		app.Locks = lockManager
		app.Logger.Info("Distributed Locks: Enabled")
	}

	if err := app.initializeVault(); err != nil {
		return nil, err
	}

	if err := app.initializeSigning(); err != nil {
		return nil, err
	}

	app.initializeProviders()
	app.initializeWordPress()
	app.Auth = auth.New(cfg.JWTSecret, app.Logger)

	return app, nil
}

// initializeVault builds the master-key encryptor and the secret vault on
// top of whatever store was configured.
func (app *App) initializeVault() error {
	encryptor, err := crypto.NewSecretEncryptor(app.Config.MasterKey, app.Config.VaultSalt)
	if err != nil {
		return err
	}
	app.Encryptor = encryptor
	app.Vault = vault.New(encryptor, app.Store, app.Logger)
	return nil
}

// initializeSigning builds the signature codec and clock guard used by the
// HMAC middleware. The algorithm is fixed at startup; requests signed with
// the other algorithm are rejected, never cross-checked.
func (app *App) initializeSigning() error {
	algorithm, err := signature.ParseAlgorithm(app.Config.SignatureAlgorithm)
	if err != nil {
		return err
	}
	codec, err := signature.NewCodec(algorithm)
	if err != nil {
		return err
	}
	app.ClockGuard = signature.NewClockGuard(app.Config.TimestampTolerance)
	app.Validator = signature.NewValidator(codec, app.ClockGuard, app.Logger)

	app.Logger.Info("Request signing configured",
		logging.Field{"algorithm", app.Config.SignatureAlgorithm},
		logging.Field{"tolerance", app.Config.TimestampTolerance.String()},
		logging.Field{"site_hash_enforced", app.Config.SiteHashEnforced})
	return nil
}

func (app *App) initializeProviders() {
	app.Providers = providers.NewService(app.Vault, providers.ServiceOptions{
		AnthropicBaseURL: app.Config.AnthropicBaseURL,
		OpenAIBaseURL:    app.Config.OpenAIBaseURL,
		Timeout:          app.Config.ProviderTimeout,
		Retry: retry.Config{
			MaxRetries:        app.Config.ProviderMaxRetries,
			InitialDelay:      app.Config.ProviderRetryDelay,
			BackoffMultiplier: 2.0,
		},
	}, app.Logger)
}

func (app *App) initializeWordPress() {
	app.WordPress = wordpress.NewClient(app.Config.ProviderTimeout, retry.Config{
		MaxRetries:        app.Config.ProviderMaxRetries,
		InitialDelay:      app.Config.ProviderRetryDelay,
		BackoffMultiplier: 2.0,
	}, app.Logger)
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Locks != nil {
		app.Locks.Close()
	}
	if app.Store != nil {
		app.Store.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
