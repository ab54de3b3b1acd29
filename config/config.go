package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingConfig is returned by Validate when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverWeaviate = "weaviate"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-1.5-flash",
}

type Config struct {
	Port      string          `mapstructure:"port"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Server    ServerConfig    `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	Provider          string        `mapstructure:"provider"`
	Endpoint          string        `mapstructure:"endpoint"`
	Model             string        `mapstructure:"model"`
	OpenAIAPIKey      string        `mapstructure:"openai_api_key"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	Temperature       float32       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// APIKey returns the credential of the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

type DatabaseConfig struct {
	Driver   string              `mapstructure:"driver"`
	URL      string              `mapstructure:"url"`
	Name     string              `mapstructure:"name"`
	Weaviate WeaviateStoreConfig `mapstructure:"weaviate"`
}

type WeaviateStoreConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"api_key"`
}

type RetrievalConfig struct {
	Limit   int           `mapstructure:"limit"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreConfig tunes interaction persistence. Driver defaults to the
// database driver; weaviate deployments keep interactions in another store.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	URL           string        `mapstructure:"url"`
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("database.driver", DriverMongo)
	v.SetDefault("database.name", "policy_assistant")
	v.SetDefault("database.weaviate.host", "")
	v.SetDefault("retrieval.limit", 8)
	v.SetDefault("retrieval.timeout", 5*time.Second)
	v.SetDefault("store.driver", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.record_timeout", 3*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_origins", []string{})
}

// LoadConfig reads configPath (optional; a missing file falls back to
// defaults) and applies environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POLICY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("llm.openai_api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.gemini_api_key", "GEMINI_API_KEY")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.weaviate.api_key", "WEAVIATE_APIKEY")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.LLM.Model == "" {
		config.LLM.Model = defaultModels[config.LLM.Provider]
	}
	if config.Store.Driver == "" && config.Database.Driver != DriverWeaviate {
		config.Store.Driver = config.Database.Driver
		config.Store.URL = config.Database.URL
	}

	return &config, nil
}

// Validate reports missing credentials or connection settings. The server
// still starts on failure but answers every chat with a misconfiguration
// response.
func (c *Config) Validate() error {
	var missing []string
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey() == "" {
			missing = append(missing, c.LLM.Provider+" api key")
		}
	default:
		missing = append(missing, "llm.provider")
	}

	switch c.Database.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
		if c.Database.URL == "" {
			missing = append(missing, "database.url")
		}
	case DriverWeaviate:
		if c.Database.Weaviate.Host == "" {
			missing = append(missing, "database.weaviate.host")
		}
	default:
		missing = append(missing, "database.driver")
	}

	switch c.Store.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
		if c.Store.URL == "" {
			missing = append(missing, "store.url")
		}
	default:
		missing = append(missing, "store.driver")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
