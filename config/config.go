package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del resolver.
type Config struct {
	Price    PriceConfig    `yaml:"price"`
	Sports   SportsConfig   `yaml:"sports"`
	Resolver ResolverConfig `yaml:"resolver"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
}

// PriceConfig contiene los endpoints de klines, en orden de preferencia:
// el proxy primero, el primario como fallback.
type PriceConfig struct {
	ProxyBase   string `yaml:"proxy_base" validate:"omitempty,url"`
	PrimaryBase string `yaml:"primary_base" validate:"required,url"`
}

// SportsConfig contiene el endpoint del proveedor deportivo y su credencial.
type SportsConfig struct {
	Base   string `yaml:"base" validate:"omitempty,url"`
	APIKey string `yaml:"api_key"` // normalmente via SPORTSDATA_API_KEY
}

// ResolverConfig controla el comportamiento del motor.
type ResolverConfig struct {
	TimeoutSeconds int  `yaml:"timeout_seconds" validate:"gte=0,lte=120"`
	RaceSources    bool `yaml:"race_sources"` // endpoints en paralelo, gana el primero
}

// JournalConfig controla dónde se persiste el rastro de auditoría.
type JournalConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las variables de entorno sobreescriben el YAML para las keys que
// correspondan, y el resultado se valida estructuralmente.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validate: %w", err)
	}

	return &cfg, nil
}

// Timeout devuelve el timeout por intento HTTP como time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están
// presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPORTSDATA_API_KEY"); v != "" {
		cfg.Sports.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Price.PrimaryBase == "" {
		cfg.Price.PrimaryBase = "https://api.binance.com/api/v3/klines"
	}
	if cfg.Sports.Base == "" {
		cfg.Sports.Base = "https://api.sportsdata.io/v3/mlb"
	}
	if cfg.Resolver.TimeoutSeconds <= 0 {
		cfg.Resolver.TimeoutSeconds = 10
	}
	if cfg.Journal.DSN == "" {
		cfg.Journal.DSN = "resolvebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
