package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix starts every environment variable read into the configuration.
// A double underscore separates section and key: IDIOMAS_SYNC__WORKERS.
const EnvPrefix = "IDIOMAS_"

// envAliases maps the variable names the hosted store and frontend use onto
// configuration keys.
var envAliases = map[string]string{
	"SUPABASE_URL":      "remote.url",
	"SUPABASE_ANON_KEY": "remote.key",
	"API_BASE":          "backend.base_url",
}

// listKeys hold comma separated values when set from the environment.
var listKeys = map[string]bool{
	"cache.manifest": true,
	"import.sources": true,
}

type Config struct {
	Log     LogConfig     `koanf:"log"`
	App     AppConfig     `koanf:"app"`
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Cache   CacheConfig   `koanf:"cache"`
	Backend BackendConfig `koanf:"backend"`
	Remote  RemoteConfig  `koanf:"remote"`
	Sync    SyncConfig    `koanf:"sync"`
	Import  ImportConfig  `koanf:"import"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// AppConfig locates the app shell the client caches for offline use.
type AppConfig struct {
	Origin     string `koanf:"origin" validate:"required,url"`
	BundlePath string `koanf:"bundle_path" validate:"required,startswith=/"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
	// BundleFile replaces the embedded vocabulary bundle when set.
	BundleFile string `koanf:"bundle_file"`
}

type StorageConfig struct {
	ProgressDB string `koanf:"progress_db" validate:"required"`
	CacheDB    string `koanf:"cache_db" validate:"required"`
}

type CacheConfig struct {
	Version  string   `koanf:"version" validate:"required"`
	Manifest []string `koanf:"manifest" validate:"min=1,dive,startswith=/"`
	RedisURL string   `koanf:"redis_url" validate:"omitempty,url"`
}

type BackendConfig struct {
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

// RemoteConfig points at the hosted table store. DatabaseURL, when set, is
// used instead of the REST interface.
type RemoteConfig struct {
	URL         string `koanf:"url" validate:"omitempty,url"`
	Key         string `koanf:"key"`
	DatabaseURL string `koanf:"database_url"`
	Identity    string `koanf:"identity" validate:"required"`
	Token       string `koanf:"token"`
	JWTSecret   string `koanf:"jwt_secret"`
}

type SyncConfig struct {
	Workers int           `koanf:"workers" validate:"min=1"`
	Queue   int           `koanf:"queue" validate:"min=1"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

type ImportConfig struct {
	Sources  []string `koanf:"sources"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
}

// RemoteConfigured reports whether enough is set to reach the hosted store.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.DatabaseURL != "" || (c.Remote.URL != "" && c.Remote.Key != "")
}

// Flags returns the flag set whose defaults are the configuration defaults.
func Flags(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML configuration file")
	f.String("env-file", ".env", "Path to a dotenv file loaded before the environment")

	f.String("log.level", "info", "Log level: debug, info, warn or error")
	f.String("log.format", "text", "Log format: text or json")
	f.String("app.origin", "http://localhost:8000", "Origin serving the app shell")
	f.String("app.bundle_path", "/base_words.json", "Path of the vocabulary bundle on the origin")
	f.String("server.addr", ":8000", "Address the server listens on")
	f.String("server.bundle_file", "", "Vocabulary bundle file served instead of the embedded one")
	f.String("storage.progress_db", "idiomas.db", "Local progress database file")
	f.String("storage.cache_db", "idiomas-cache.db", "Local asset cache database file")
	f.String("cache.version", "app-idiomas-v1", "Asset cache generation tag")
	f.StringSlice("cache.manifest", []string{"/", "/index.html", "/base_words.json"}, "Paths precached at install")
	f.String("cache.redis_url", "", "Redis URL for a shared asset cache")
	f.String("backend.base_url", "", "REST backend base URL")
	f.String("remote.url", "", "Hosted store URL")
	f.String("remote.key", "", "Hosted store anonymous key")
	f.String("remote.database_url", "", "Hosted store Postgres connection string")
	f.String("remote.identity", "local-user", "Identity progress is stored under")
	f.String("remote.token", "", "Access token of the signed-in user")
	f.String("remote.jwt_secret", "", "Secret used to verify access tokens")
	f.Int("sync.workers", 2, "Background sync workers")
	f.Int("sync.queue", 64, "Background sync queue size")
	f.Duration("sync.timeout", 10*time.Second, "Timeout of one background sync write")
	f.StringSlice("import.sources", nil, "Week list directories or git URLs")
	f.String("import.repos_dir", "repos", "Directory git sources are cloned into")
	return f
}

// Load parses args and layers the configuration file, the environment and the
// flags, in that order. It returns the positional arguments left after the flags.
func Load(args []string) (*Config, []string, error) {
	f := Flags("idiomas")
	if err := f.Parse(args); err != nil {
		return nil, nil, err
	}

	envFile, _ := f.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")
	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, f.Args(), nil
}

var validate = validator.New()

// Validate checks a loaded configuration.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// envKey turns IDIOMAS_SYNC__WORKERS into sync.workers and resolves aliases.
// Other variables are dropped.
func envKey(name, value string) (string, any) {
	var key string
	if alias, ok := envAliases[name]; ok {
		key = alias
	} else if strings.HasPrefix(name, EnvPrefix) {
		key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, EnvPrefix), "__", "."))
	} else {
		return "", nil
	}
	if value == "" {
		return "", nil
	}
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
