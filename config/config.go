package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/playscore/internal/engine"
)

// Config es la configuración completa de playscore.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Settings SettingsConfig `yaml:"settings"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig controla la sesión y el ranker.
type EngineConfig struct {
	SlipCapacity int                 `yaml:"slip_capacity"`
	Platform     string              `yaml:"platform"` // sleeper | prizepicks | underdog
	Sport        string              `yaml:"sport"`
	Workers      int                 `yaml:"workers"` // 0 = NumCPU*2
	Filter       engine.FilterConfig `yaml:"filter"`
}

// SettingsConfig apunta al servicio externo de perfiles. URL vacía = desactivado.
type SettingsConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Listen                string   `yaml:"listen"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío arranca solo con defaults y entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SettingsTimeout devuelve el timeout del cliente de settings.
func (c *Config) SettingsTimeout() time.Duration {
	return time.Duration(c.Settings.TimeoutSeconds) * time.Second
}

// RequestTimeout devuelve el timeout por petición HTTP.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PLAYSCORE_SETTINGS_URL"); v != "" {
		cfg.Settings.URL = v
	}
	if v := os.Getenv("PLAYSCORE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("PLAYSCORE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("PLAYSCORE_PLATFORM"); v != "" {
		cfg.Engine.Platform = v
	}
	if v := os.Getenv("PLAYSCORE_SPORT"); v != "" {
		cfg.Engine.Sport = v
	}
	if v := os.Getenv("PLAYSCORE_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v, err := strconv.Atoi(os.Getenv("PLAYSCORE_WORKERS")); err == nil && v > 0 {
		cfg.Engine.Workers = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.SlipCapacity <= 0 {
		cfg.Engine.SlipCapacity = 6
	}
	if cfg.Engine.Platform == "" {
		cfg.Engine.Platform = "sleeper"
	}
	if cfg.Engine.Sport == "" {
		cfg.Engine.Sport = "nba"
	}
	if cfg.Settings.TimeoutSeconds <= 0 {
		cfg.Settings.TimeoutSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "playscore.db"
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8086"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
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
