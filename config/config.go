package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Match modes for route rules.
const (
	MatchPrefix = "prefix"
	MatchExact  = "exact"
)

// Cache policy names accepted in route rules.
const (
	CacheNoStore   = "no-store"
	CachePublic    = "public"
	CacheImmutable = "immutable"
)

type TLSConfig struct {
	CertFile       string `mapstructure:"cert_file"`
	KeyFile        string `mapstructure:"key_file"`
	ReloadInterval string `mapstructure:"reload_interval"`
}

// Enabled reports whether a certificate pair was configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != ""
}

type ServerConfig struct {
	Address      string    `mapstructure:"address"`
	Environment  string    `mapstructure:"environment"`
	ReadTimeout  string    `mapstructure:"read_timeout"`
	WriteTimeout string    `mapstructure:"write_timeout"`
	IdleTimeout  string    `mapstructure:"idle_timeout"`
	MaxBodyBytes int64     `mapstructure:"max_body_bytes"`
	TLS          TLSConfig `mapstructure:"tls"`
}

type UpstreamConfig struct {
	DialTimeout           string `mapstructure:"dial_timeout"`
	ResponseHeaderTimeout string `mapstructure:"response_header_timeout"`
	IdleConnTimeout       string `mapstructure:"idle_conn_timeout"`
	MaxIdleConnsPerHost   int    `mapstructure:"max_idle_conns_per_host"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
	Path     string `mapstructure:"path"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type BackendConfig struct {
	URL    string `mapstructure:"url"`
	Weight int    `mapstructure:"weight"`
}

type PoolConfig struct {
	Name         string          `mapstructure:"name"`
	Strategy     string          `mapstructure:"strategy"`
	VirtualNodes int             `mapstructure:"virtual_nodes"`
	Backends     []BackendConfig `mapstructure:"backends"`
}

type RouteConfig struct {
	Path    string            `mapstructure:"path"`
	Match   string            `mapstructure:"match"`
	Pool    string            `mapstructure:"pool"`
	Cache   string            `mapstructure:"cache"`
	Headers map[string]string `mapstructure:"headers"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Upstream       UpstreamConfig       `mapstructure:"upstream"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	DefaultPool    string               `mapstructure:"default_pool"`
	Pools          []PoolConfig         `mapstructure:"pools"`
	Routes         []RouteConfig        `mapstructure:"routes"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.tls.reload_interval", "5m")
	v.SetDefault("upstream.dial_timeout", "5s")
	v.SetDefault("upstream.response_header_timeout", "30s")
	v.SetDefault("upstream.idle_conn_timeout", "90s")
	v.SetDefault("upstream.max_idle_conns_per_host", 32)
	v.SetDefault("health_check.interval", "2s")
	v.SetDefault("health_check.path", "/health")
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.reset_timeout", "30s")
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("logging.level", LogLevelInfo)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

// Load reads configuration from the given file (or the default search
// paths when path is empty), applies environment overrides and validates
// the result.
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	return unmarshal(v)
}

// Watch re-reads and validates the configuration whenever the file changes
// on disk and invokes onChange with the fresh config. A change that fails
// to parse or validate is reported through onError and otherwise ignored,
// so the caller keeps serving with its previous configuration.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			onError(err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(validateServerConfig),
		),
		validation.Field(&c.Upstream,
			validation.Required,
			validation.By(validateUpstreamConfig),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.Path,
						validation.Required,
						validation.By(validatePath),
					),
				)
			}),
		),
		validation.Field(&c.CircuitBreaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				cb, ok := value.(CircuitBreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CircuitBreakerConfig")
				}
				return validation.ValidateStruct(&cb,
					validation.Field(&cb.FailureThreshold, validation.Required, validation.Min(1)),
					validation.Field(&cb.ResetTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Pools,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validatePoolConfig)),
		),
		validation.Field(&c.Routes,
			validation.Each(validation.By(validateRouteConfig)),
		),
	); err != nil {
		return err
	}

	return c.validateReferences()
}

// validateReferences enforces cross-section invariants: pool names are
// unique, every route points at a declared pool, and default_pool (when
// set) names a declared pool.
func (c *Config) validateReferences() error {
	pools := make(map[string]struct{}, len(c.Pools))
	for _, p := range c.Pools {
		if _, dup := pools[p.Name]; dup {
			return validation.NewError("validation_duplicate_pool",
				fmt.Sprintf("duplicate pool name %q", p.Name))
		}
		pools[p.Name] = struct{}{}
	}

	for _, r := range c.Routes {
		if _, ok := pools[r.Pool]; !ok {
			return validation.NewError("validation_unknown_pool",
				fmt.Sprintf("route %q references unknown pool %q", r.Path, r.Pool))
		}
	}

	if c.DefaultPool != "" {
		if _, ok := pools[c.DefaultPool]; !ok {
			return validation.NewError("validation_unknown_pool",
				fmt.Sprintf("default_pool references unknown pool %q", c.DefaultPool))
		}
	}

	return nil
}

func validateServerConfig(value interface{}) error {
	sc, ok := value.(ServerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServerConfig")
	}
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&sc.MaxBodyBytes, validation.Min(0)),
		validation.Field(&sc.TLS, validation.By(validateTLSConfig)),
	)
}

func validateTLSConfig(value interface{}) error {
	tc, ok := value.(TLSConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a TLSConfig")
	}

	if !tc.Enabled() {
		return nil
	}

	if tc.CertFile == "" || tc.KeyFile == "" {
		return validation.NewError("validation_incomplete_tls",
			"tls requires both cert_file and key_file")
	}

	return validation.ValidateStruct(&tc,
		validation.Field(&tc.ReloadInterval, validation.Required, validation.By(validateDuration)),
	)
}

func validateUpstreamConfig(value interface{}) error {
	uc, ok := value.(UpstreamConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
	}
	return validation.ValidateStruct(&uc,
		validation.Field(&uc.DialTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.ResponseHeaderTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.IdleConnTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.MaxIdleConnsPerHost, validation.Required, validation.Min(1)),
	)
}

func validatePoolConfig(value interface{}) error {
	pc, ok := value.(PoolConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a PoolConfig")
	}
	return validation.ValidateStruct(&pc,
		validation.Field(&pc.Name, validation.Required, is.Alphanumeric),
		validation.Field(&pc.Strategy,
			validation.Required,
			validation.In("least-conn", "round-robin", "weighted-round-robin",
				"random", "least-response", "consistent-hash"),
		),
		validation.Field(&pc.VirtualNodes, validation.Min(0)),
		validation.Field(&pc.Backends,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateBackendConfig)),
		),
	)
}

func validateRouteConfig(value interface{}) error {
	rc, ok := value.(RouteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RouteConfig")
	}
	return validation.ValidateStruct(&rc,
		validation.Field(&rc.Path, validation.Required, validation.By(validatePath)),
		validation.Field(&rc.Match,
			validation.Required,
			validation.In(MatchPrefix, MatchExact),
		),
		validation.Field(&rc.Pool, validation.Required),
		validation.Field(&rc.Cache,
			validation.Required,
			validation.In(CacheNoStore, CachePublic, CacheImmutable),
		),
	)
}

func validateBackendConfig(value interface{}) error {
	backend, ok := value.(BackendConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackendConfig")
	}

	if backend.URL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	parsedURL, err := url.Parse(backend.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if backend.Weight < 1 {
		return validation.NewError("validation_invalid_weight", "weight must be at least 1")
	}

	return nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validatePath(value interface{}) error {
	p, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if !strings.HasPrefix(p, "/") {
		return validation.NewError("validation_invalid_path", "path must start with /")
	}

	return nil
}
