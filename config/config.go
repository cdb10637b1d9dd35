package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env string `yaml:"env" env:"ENV" env-default:"local"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	} `yaml:"log"`

	Derive struct {
		Anchor      string        `yaml:"anchor" env:"DERIVE_ANCHOR" env-default:"USD"`
		CurveTicker string        `yaml:"curve_ticker" env:"DERIVE_CURVE_TICKER" env-default:"USD_MM"`
		CurveTTL    time.Duration `yaml:"curve_ttl" env:"DERIVE_CURVE_TTL" env-default:"15m"`
		LegTTL      time.Duration `yaml:"leg_ttl" env:"DERIVE_LEG_TTL" env-default:"3m"`
	} `yaml:"derive"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
	} `yaml:"postgres"`

	Redis struct {
		Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" env:"REDIS_SNAPSHOT_TTL" env-default:"1m"`
	} `yaml:"redis"`

	Metrics struct {
		Addr string `yaml:"addr" env:"METRICS_ADDR" env-default:":9180"`
	} `yaml:"metrics"`
}

// MustLoad reads CONFIG_PATH (yaml) when set, falling back to environment
// variables, and exits on any error. A .env file in the working directory
// is loaded first when present.
func MustLoad() *Config {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			log.Fatalf("config file %s: %v", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			log.Fatalf("read config %s: %v", path, err)
		}
		return &cfg
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("read config from env: %v", err)
	}
	return &cfg
}
