package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/codespace/internal/cache"
	"github.com/faucetdb/codespace/internal/codespace"
	"github.com/faucetdb/codespace/internal/config"
	"github.com/faucetdb/codespace/internal/model"
	"github.com/faucetdb/codespace/internal/service"
	"github.com/faucetdb/codespace/internal/store"
	"github.com/faucetdb/codespace/internal/token"
)

const devSecret = "codespace-dev-secret-change-me"

// loadConfig returns the validated effective configuration.
func loadConfig() (*config.YAMLConfig, error) {
	cfg, err := decodeConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// decodeConfig builds the effective configuration: defaults, then the config
// file with ${VAR} references expanded, then CODESPACE_* environment
// variables and bound flags.
func decodeConfig() (*config.YAMLConfig, error) {
	v := viper.GetViper()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if path := v.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil && cfgFile != "":
			return nil, fmt.Errorf("read config file: %w", err)
		case err == nil:
			v.SetConfigType("yaml")
			if err := v.ReadConfig(strings.NewReader(os.ExpandEnv(string(data)))); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	cfg := &config.YAMLConfig{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if devMode {
		if cfg.Auth.JWTSecret == "" {
			cfg.Auth.JWTSecret = devSecret
		}
		if cfg.Share.TokenSecret == "" {
			cfg.Share.TokenSecret = devSecret
		}
	}
	return cfg, nil
}

// setDefaults registers every key of the default document with viper so
// that environment variables can override keys absent from the file.
func setDefaults(v *viper.Viper) error {
	b, err := yaml.Marshal(config.DefaultYAMLConfig())
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	walkDefaults(v, "", m)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

func newLogger(cfg *config.YAMLConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if devMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openStore connects the durable store and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.YAMLConfig) (*store.Store, error) {
	st, err := store.Open(store.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Pool: model.PoolConfig{
			MaxOpenConns:    cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetime: config.Duration(cfg.Database.Pool.ConnMaxLifetime),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return st, nil
}

// openCache connects the configured cache. In dev mode an unreachable Redis
// falls back to the in-process cache.
func openCache(ctx context.Context, cfg *config.YAMLConfig, logger *slog.Logger) (cache.Store, error) {
	if cfg.Cache.Driver == "memory" {
		return startMemoryCache(ctx), nil
	}

	r := cache.NewRedis(cache.RedisOptions{
		Addr:        cfg.Cache.Addr,
		Password:    cfg.Cache.Password,
		DB:          cfg.Cache.DB,
		DialTimeout: config.Duration(cfg.Cache.DialTimeout),
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.Close()
		if devMode {
			logger.Warn("redis unreachable, using in-memory cache", "addr", cfg.Cache.Addr, "error", err)
			return startMemoryCache(ctx), nil
		}
		return nil, fmt.Errorf("connect cache at %s: %w", cfg.Cache.Addr, err)
	}
	return r, nil
}

func startMemoryCache(ctx context.Context) *cache.Memory {
	m := cache.NewMemory()
	go m.RunSweeper(ctx, time.Minute)
	return m
}

// app bundles the wired services shared by serve and mcp.
type app struct {
	store      *store.Store
	cache      cache.Store
	codespaces *codespace.Service
	ephemeral  *codespace.EphemeralStore
	codec      *token.Codec
	auth       *service.AuthService
	users      *service.UserService
	share      *service.ShareService
}

func openApp(ctx context.Context, cfg *config.YAMLConfig, logger *slog.Logger) (*app, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database ready", "driver", st.Driver())

	c, err := openCache(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	a, err := wire(st, c, cfg, logger)
	if err != nil {
		c.Close()
		st.Close()
		return nil, err
	}
	return a, nil
}

func wire(st *store.Store, c cache.Store, cfg *config.YAMLConfig, logger *slog.Logger) (*app, error) {
	codespaces, err := codespace.NewService(st, c, codespace.Options{
		ActiveTTL: config.Duration(cfg.Cache.ActiveTTL),
	}, logger)
	if err != nil {
		return nil, err
	}
	ephemeral, err := codespace.NewEphemeralStore(c, config.Duration(cfg.Cache.EphemeralTTL), logger)
	if err != nil {
		return nil, err
	}
	codec, err := token.NewCodec(cfg.Share.TokenSecret)
	if err != nil {
		return nil, err
	}

	return &app{
		store:      st,
		cache:      c,
		codespaces: codespaces,
		ephemeral:  ephemeral,
		codec:      codec,
		auth: service.NewAuthService(st, cfg.Auth.JWTSecret,
			config.Duration(cfg.Auth.AccessTTL), config.Duration(cfg.Auth.RefreshTTL)),
		users: service.NewUserService(st, codespaces),
		share: service.NewShareService(codec, codespaces),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
