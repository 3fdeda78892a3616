package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Hypixel HypixelConfig `mapstructure:"hypixel"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	PaaS    PaaSConfig    `mapstructure:"paas"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	RecentSync string `mapstructure:"recent_sync"`
	FullSync   string `mapstructure:"full_sync"`
	Retention  string `mapstructure:"retention"`
}

type HypixelConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIKey  string        `mapstructure:"api_key"`
}

type IngestConfig struct {
	RecentPages      int           `mapstructure:"recent_pages"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	Workers          int           `mapstructure:"workers"`
	InitialFullSync  bool          `mapstructure:"initial_full_sync"`
	DedupeCapacity   uint          `mapstructure:"dedupe_capacity"`
	PersistAnomalies bool          `mapstructure:"persist_anomalies"`
	Retention        time.Duration `mapstructure:"retention"`
}

// PaaSConfig points at the optional easyweb3 gateway. With an empty base
// url or api key the remote log sink is disabled.
type PaaSConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Agent          string `mapstructure:"agent"`
	AuthDisabled   bool   `mapstructure:"auth_disabled"`
	RequireGateway bool   `mapstructure:"require_gateway"`
}

// DotenvFiles are loaded, in order, before the environment is read.
// Variables already set are never overwritten, so earlier files win.
var DotenvFiles = []string{".env.local", ".env"}

func loadDotenv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func Load(path string, envOnly bool) (Config, error) {
	if err := loadDotenv(DotenvFiles); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("AH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	_ = v.BindEnv("db.dsn", "AH_DB_DSN", "DATABASE_URL")
	_ = v.BindEnv("hypixel.api_key", "AH_HYPIXEL_API_KEY", "HYPIXEL_API_KEY")
	_ = v.BindEnv("paas.base_url", "AH_PAAS_BASE_URL", "EASYWEB3_API_BASE")
	_ = v.BindEnv("paas.api_key", "AH_PAAS_API_KEY", "EASYWEB3_API_KEY")

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.recent_sync", "@every 30s")
	v.SetDefault("cron.full_sync", "@every 10m")
	v.SetDefault("cron.retention", "")
	v.SetDefault("hypixel.base_url", "https://api.hypixel.net")
	v.SetDefault("hypixel.timeout", "15s")
	v.SetDefault("hypixel.api_key", "")
	v.SetDefault("ingest.recent_pages", 10)
	v.SetDefault("ingest.chunk_size", 100)
	v.SetDefault("ingest.workers", 8)
	v.SetDefault("ingest.initial_full_sync", true)
	v.SetDefault("ingest.dedupe_capacity", 2_000_000)
	v.SetDefault("ingest.persist_anomalies", true)
	v.SetDefault("ingest.retention", "168h")
	v.SetDefault("paas.base_url", "")
	v.SetDefault("paas.api_key", "")
	v.SetDefault("paas.agent", "auction-ingest")
	v.SetDefault("paas.auth_disabled", false)
	v.SetDefault("paas.require_gateway", false)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
