package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type KVBackend string

const (
	KVMemory   KVBackend = "memory"
	KVRedis    KVBackend = "redis"
	KVPostgres KVBackend = "postgres"
)

type Config struct {
	Port    string `mapstructure:"PORT"`
	AppName string `mapstructure:"APP_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DB_DSN vacío => repos in-memory.
	DBDSN string `mapstructure:"DB_DSN"`

	KVBackend     KVBackend `mapstructure:"KV_BACKEND"`
	RedisAddr     string    `mapstructure:"REDIS_ADDR"`
	RedisPassword string    `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int       `mapstructure:"REDIS_DB"`

	// Persist replica las colecciones en el KV después de cada mutación.
	Persist   bool          `mapstructure:"PERSIST"`
	SeedDelay time.Duration `mapstructure:"SEED_DELAY"`

	// JWT_SECRET vacío => modo dev (X-Debug-User-ID / sesión persistida).
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxUploadBytes int64         `mapstructure:"MAX_UPLOAD_BYTES"`
}

var keys = []string{
	"PORT", "APP_NAME", "LOG_LEVEL", "LOG_FORMAT",
	"DB_DSN", "KV_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"PERSIST", "SEED_DELAY", "JWT_SECRET", "JWT_TTL", "CORS_ORIGINS",
	"READ_TIMEOUT", "WRITE_TIMEOUT", "MAX_UPLOAD_BYTES",
}

// Load lee la configuración desde env (y opcionalmente un .env / archivo).
// file vacío => solo .env del directorio actual, si existe.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_NAME", "dental-clinic")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("KV_BACKEND", string(KVMemory))
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PERSIST", true)
	v.SetDefault("SEED_DELAY", "0s")
	v.SetDefault("JWT_TTL", "0s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("READ_TIMEOUT", "5s")
	v.SetDefault("WRITE_TIMEOUT", "10s")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if strings.TrimSpace(file) != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// CSV en env: "http://a,http://b"
	if raw := v.GetString("CORS_ORIGINS"); raw != "" {
		cfg.CORSOrigins = splitCSV(raw)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.KVBackend {
	case KVMemory, KVRedis:
	case KVPostgres:
		if strings.TrimSpace(c.DBDSN) == "" {
			return fmt.Errorf("KV_BACKEND=postgres requires DB_DSN")
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", c.KVBackend)
	}
	if c.SeedDelay < 0 {
		return fmt.Errorf("SEED_DELAY must be >= 0")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}

// Addr devuelve ":<port>" para http.Server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
