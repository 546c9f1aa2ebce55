package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Twitter    TwitterConfig    `mapstructure:"twitter"`
	Birdeye    ProviderConfig   `mapstructure:"birdeye"`
	DefiLlama  ProviderConfig   `mapstructure:"defillama"`
	Moralis    ProviderConfig   `mapstructure:"moralis"`
	Elfa       ProviderConfig   `mapstructure:"elfa"`
	Rugcheck   RugcheckConfig   `mapstructure:"rugcheck"`
	OpenAI     LLMConfig        `mapstructure:"openai"`
	Anthropic  LLMConfig        `mapstructure:"anthropic"`
	Fal        ProviderConfig   `mapstructure:"fal"`
	Pinecone   PineconeConfig   `mapstructure:"pinecone"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
}

type AppConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	LogDir        string `mapstructure:"log_dir"`
	Debug         bool   `mapstructure:"debug"`
	HTTPAddr      string `mapstructure:"http_addr"`
	CronSecret    string `mapstructure:"cron_secret"`    // bearer token required on job routes
	ReadToken     string `mapstructure:"read_token"`     // bearer token for ask and visualization, cron_secret also works
	CheckInterval int    `mapstructure:"check_interval"` // seconds between alert runs in bot mode
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // empty = in-memory cache
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ArchiveConfig struct {
	Backend string `mapstructure:"backend"` // local | gcs | none
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
}

type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	DefaultChatID int64  `mapstructure:"default_chat_id"`
}

type TwitterConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	BearerToken string `mapstructure:"bearer_token"` // app-only, for reading timelines
	UserToken   string `mapstructure:"user_token"`   // OAuth2 user context, for posting
}

type ProviderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	MaxRetries int    `mapstructure:"max_retries"`
	RateLimit  int    `mapstructure:"rate_limit"` // requests per second
}

type RugcheckConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	WalletPrivateKey string `mapstructure:"wallet_private_key"` // base58 ed25519 secret key
}

type LLMConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type PineconeConfig struct {
	IndexHost string `mapstructure:"index_host"`
	APIKey    string `mapstructure:"api_key"`
	Namespace string `mapstructure:"namespace"`
}

type AlertsConfig struct {
	MarketCapChangePct float64       `mapstructure:"market_cap_change_pct"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	NewTokenWindow     time.Duration `mapstructure:"new_token_window"`
	LookbackWindow     time.Duration `mapstructure:"lookback_window"` // tokens updated within this window are evaluated
}

type EmbeddingsConfig struct {
	Backend     string `mapstructure:"backend"` // pgvector | pinecone | both
	BatchSize   int    `mapstructure:"batch_size"`
	Concurrency int    `mapstructure:"concurrency"`
}

// LoadConfig merges, lowest precedence first: defaults, config.yaml, .env, environment, flags.
// flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setupEnvAliases(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// setupEnvAliases maps the provider-style variable names used in deployment to config keys.
func setupEnvAliases(v *viper.Viper) {
	aliases := map[string]string{
		"app.cron_secret":             "CRON_SECRET",
		"app.read_token":              "API_READ_TOKEN",
		"database.dsn":                "DATABASE_URL",
		"redis.addr":                  "REDIS_ADDR",
		"archive.bucket":              "ARCHIVE_BUCKET",
		"pubsub.project_id":           "GOOGLE_CLOUD_PROJECT",
		"pubsub.topic":                "ALERTS_TOPIC",
		"telegram.bot_token":          "TELEGRAM_BOT_TOKEN",
		"telegram.webhook_secret":     "TELEGRAM_WEBHOOK_SECRET",
		"telegram.default_chat_id":    "TELEGRAM_CHAT_ID",
		"twitter.bearer_token":        "TWITTER_BEARER_TOKEN",
		"twitter.user_token":          "TWITTER_USER_TOKEN",
		"birdeye.api_key":             "BIRDEYE_API_KEY",
		"moralis.api_key":             "MORALIS_API_KEY",
		"elfa.api_key":                "ELFA_API_KEY",
		"rugcheck.wallet_private_key": "RUGCHECK_WALLET_PRIVATE_KEY",
		"openai.api_key":              "OPENAI_API_KEY",
		"anthropic.api_key":           "ANTHROPIC_API_KEY",
		"fal.api_key":                 "FAL_KEY",
		"pinecone.api_key":            "PINECONE_API_KEY",
		"pinecone.index_host":         "PINECONE_INDEX_HOST",
	}
	for key, env := range aliases {
		_ = v.BindEnv(key, env)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.data_dir", "data")
	v.SetDefault("app.log_dir", "logs")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.http_addr", ":8080")
	v.SetDefault("app.check_interval", 300)

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("archive.backend", "local")
	v.SetDefault("archive.dir", "data/raw")

	v.SetDefault("twitter.base_url", "https://api.twitter.com/2")

	v.SetDefault("birdeye.base_url", "https://public-api.birdeye.so")
	v.SetDefault("birdeye.max_retries", 3)
	v.SetDefault("birdeye.rate_limit", 15)
	v.SetDefault("defillama.base_url", "https://yields.llama.fi")
	v.SetDefault("defillama.max_retries", 2)
	v.SetDefault("defillama.rate_limit", 5)
	v.SetDefault("moralis.base_url", "https://solana-gateway.moralis.io")
	v.SetDefault("moralis.max_retries", 3)
	v.SetDefault("moralis.rate_limit", 10)
	v.SetDefault("elfa.base_url", "https://api.elfa.ai")
	v.SetDefault("elfa.max_retries", 3)
	v.SetDefault("elfa.rate_limit", 5)
	v.SetDefault("rugcheck.base_url", "https://api.rugcheck.xyz")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("anthropic.model", "claude-3-5-sonnet-latest")
	v.SetDefault("fal.base_url", "https://fal.run")

	v.SetDefault("pinecone.namespace", "tweets")

	v.SetDefault("alerts.market_cap_change_pct", 20.0)
	v.SetDefault("alerts.cooldown", time.Hour)
	v.SetDefault("alerts.new_token_window", 24*time.Hour)
	v.SetDefault("alerts.lookback_window", 2*time.Hour)

	v.SetDefault("embeddings.backend", "pgvector")
	v.SetDefault("embeddings.batch_size", 100)
	v.SetDefault("embeddings.concurrency", 4)
}

// Flags returns the command-line overrides shared by every subcommand.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.String("app.data_dir", "data", "Data directory for cached tokens and local archives (env: APP_DATA_DIR)")
	fs.String("app.http_addr", ":8080", "Listen address for the HTTP routes (env: APP_HTTP_ADDR)")
	fs.Bool("app.debug", false, "Write DEBUG entries to the log file (env: APP_DEBUG)")
	fs.String("database.dsn", "", "Postgres DSN (env: DATABASE_URL)")
	fs.String("archive.backend", "local", "Raw payload archive: local, gcs or none (env: ARCHIVE_BACKEND)")
	fs.String("embeddings.backend", "pgvector", "Vector index: pgvector, pinecone or both (env: EMBEDDINGS_BACKEND)")
	return fs
}

// ValidateServe checks what the HTTP server and bot need.
func ValidateServe(cfg *Config) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (env: DATABASE_URL)")
	}
	if cfg.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (env: TELEGRAM_BOT_TOKEN)")
	}
	return ValidateAlerts(cfg)
}

// ValidateDatabase checks the one-shot jobs that only touch the database and providers.
func ValidateDatabase(cfg *Config) error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (env: DATABASE_URL)")
	}
	return nil
}

func ValidateAlerts(cfg *Config) error {
	if cfg.Alerts.MarketCapChangePct <= 0 {
		return fmt.Errorf("alerts.market_cap_change_pct must be positive, got %v", cfg.Alerts.MarketCapChangePct)
	}
	if cfg.Alerts.Cooldown < 0 || cfg.Alerts.NewTokenWindow <= 0 {
		return fmt.Errorf("alerts.cooldown must be >= 0 and alerts.new_token_window > 0")
	}
	return nil
}
