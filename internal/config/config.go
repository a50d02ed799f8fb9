package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration
type Config struct {
	Mode          string        `mapstructure:"mode"`
	Port          int           `mapstructure:"port"`
	LogLevel      string        `mapstructure:"log_level"`
	Store         string        `mapstructure:"store"`
	MongoURI      string        `mapstructure:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database"`
	RedisURI      string        `mapstructure:"redis_uri"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	LockPolicy    string        `mapstructure:"lock_policy"`
	CORSOrigins   string        `mapstructure:"cors_allowed_origins"`
	BookingLock   time.Duration `mapstructure:"booking_lock_ttl"`
	PresenceTTL   time.Duration `mapstructure:"presence_ttl"`
	WS            WSConfig      `mapstructure:"ws"`
}

// WSConfig tunes the WebSocket pumps
type WSConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// bare names kept for deployments that predate the MENTORHUB_ prefix
var legacyEnv = map[string]string{
	"mongo_uri":  "MONGO_URI",
	"redis_uri":  "REDIS_URI",
	"jwt_secret": "JWT_SECRET",
	"port":       "PORT",
}

// New returns a viper instance with defaults and env bindings applied
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("store", StoreMongo)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "mentorhub")
	v.SetDefault("redis_uri", "redis://localhost:6379")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("public_base_url", "http://localhost:3000")
	v.SetDefault("lock_policy", "learner")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("booking_lock_ttl", "10s")
	v.SetDefault("presence_ttl", "2m")
	v.SetDefault("ws.read_limit", 65536)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "10s")
	v.SetDefault("ws.send_buffer", 256)

	v.SetEnvPrefix("MENTORHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		v.BindEnv(key, "MENTORHUB_"+strings.ToUpper(key), env)
	}
	return v
}

// Load reads an optional config file, then env, into a Config
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	switch c.Store {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		return fmt.Errorf("ws.ping_period must be shorter than ws.pong_wait")
	}
	if c.PresenceTTL <= c.WS.PongWait {
		return fmt.Errorf("presence_ttl must be longer than ws.pong_wait")
	}
	if c.WS.SendBuffer <= 0 {
		return fmt.Errorf("ws.send_buffer must be positive")
	}
	return nil
}

// RedisAddr strips a redis:// scheme, leaving host:port
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURI, "redis://")
}
