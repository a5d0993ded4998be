/**
 * @description
 * This package handles the configuration management for the kiosk service. It uses the
 * Viper library to read configuration from environment variables and an optional .env
 * file, coercing invalid values back to their defaults.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultServerPort            = "8000"
	DefaultStandardDurationSec   = 180
	DefaultDeepDurationSec       = 300
	DefaultStatusPushIntervalSec = 5
	DefaultStatusHeartbeatSec    = 15
	DefaultStaleCycleGraceSec    = 600
	DefaultStaleCycleSchedule    = "@every 1m"
	DefaultJWTTTLMinutes         = 120
	DefaultRecoveryRateLimit     = 10
	DefaultBcryptCost            = 10
	DefaultRateLimitPrefix       = "shoevendo:rate_limit"
	DefaultEventExchange         = "shoevendo.events"
	DefaultMachineEventQueue     = "kiosk_service.machine_updates"
)

// Config holds all the configuration variables for the kiosk service.
// Numeric cycle and stream settings are parsed by hand so that a malformed value
// falls back to its default instead of failing the whole load.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	EventExchange        string `mapstructure:"EVENT_EXCHANGE"`
	MachineEventQueue    string `mapstructure:"MACHINE_EVENT_QUEUE"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	StaleCycleSchedule   string `mapstructure:"STALE_CYCLE_SWEEP_SCHEDULE"`
	CORSAllowedOrigins   string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	AdminBootstrapPin    string `mapstructure:"ADMIN_BOOTSTRAP_PINCODE"`
	AdminBootstrapEmail  string `mapstructure:"ADMIN_BOOTSTRAP_EMAIL"`
	AdminBootstrapPass   string `mapstructure:"ADMIN_BOOTSTRAP_PASSWORD"`

	StandardDurationSec        int `mapstructure:"-"`
	DeepDurationSec            int `mapstructure:"-"`
	StatusPushIntervalSec      int `mapstructure:"-"`
	StatusHeartbeatSec         int `mapstructure:"-"`
	StaleCycleGraceSec         int `mapstructure:"-"`
	JWTTTLMinutes              int `mapstructure:"-"`
	RecoveryRateLimitPerMinute int `mapstructure:"-"`
	BcryptCost                 int `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables and the optional .env
// file found in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", DefaultServerPort)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", DefaultRateLimitPrefix)
	viper.SetDefault("EVENT_EXCHANGE", DefaultEventExchange)
	viper.SetDefault("MACHINE_EVENT_QUEUE", DefaultMachineEventQueue)
	viper.SetDefault("STALE_CYCLE_SWEEP_SCHEDULE", DefaultStaleCycleSchedule)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("MACHINE_EVENT_QUEUE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("STALE_CYCLE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("ADMIN_BOOTSTRAP_PINCODE")
	_ = viper.BindEnv("ADMIN_BOOTSTRAP_EMAIL")
	_ = viper.BindEnv("ADMIN_BOOTSTRAP_PASSWORD")
	_ = viper.BindEnv("STANDARD_DURATION_SEC")
	_ = viper.BindEnv("DEEP_DURATION_SEC")
	_ = viper.BindEnv("STATUS_PUSH_INTERVAL_SEC")
	_ = viper.BindEnv("STATUS_HEARTBEAT_SEC")
	_ = viper.BindEnv("STALE_CYCLE_GRACE_SEC")
	_ = viper.BindEnv("JWT_TTL_MINUTES")
	_ = viper.BindEnv("RECOVERY_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("BCRYPT_COST")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = DefaultRateLimitPrefix
	}
	config.AdminBootstrapPin = strings.TrimSpace(config.AdminBootstrapPin)
	config.AdminBootstrapEmail = strings.TrimSpace(config.AdminBootstrapEmail)
	config.StaleCycleSchedule = strings.TrimSpace(config.StaleCycleSchedule)
	if config.StaleCycleSchedule == "" {
		config.StaleCycleSchedule = DefaultStaleCycleSchedule
	}

	config.StandardDurationSec = positiveIntSetting("STANDARD_DURATION_SEC", DefaultStandardDurationSec)
	config.DeepDurationSec = positiveIntSetting("DEEP_DURATION_SEC", DefaultDeepDurationSec)
	config.StatusPushIntervalSec = positiveIntSetting("STATUS_PUSH_INTERVAL_SEC", DefaultStatusPushIntervalSec)
	config.StatusHeartbeatSec = positiveIntSetting("STATUS_HEARTBEAT_SEC", DefaultStatusHeartbeatSec)
	config.JWTTTLMinutes = positiveIntSetting("JWT_TTL_MINUTES", DefaultJWTTTLMinutes)
	config.RecoveryRateLimitPerMinute = positiveIntSetting("RECOVERY_RATE_LIMIT_PER_MINUTE", DefaultRecoveryRateLimit)

	// A non-positive grace is a deliberate way to switch the sweep off, so only
	// unparseable values fall back here.
	config.StaleCycleGraceSec = DefaultStaleCycleGraceSec
	if raw := strings.TrimSpace(viper.GetString("STALE_CYCLE_GRACE_SEC")); raw != "" {
		if n, parseErr := strconv.Atoi(raw); parseErr == nil {
			config.StaleCycleGraceSec = n
		} else {
			log.Printf("level=warn component=config msg=\"invalid STALE_CYCLE_GRACE_SEC; using default\" value=%q", raw)
		}
	}

	config.BcryptCost = positiveIntSetting("BCRYPT_COST", DefaultBcryptCost)
	if config.BcryptCost < 4 || config.BcryptCost > 31 {
		log.Printf("level=warn component=config msg=\"bcrypt cost out of range; using default\" cost=%d", config.BcryptCost)
		config.BcryptCost = DefaultBcryptCost
	}

	return
}

// AdminBootstrapEnabled reports whether an initial administrator should be seeded at boot.
func (c Config) AdminBootstrapEnabled() bool {
	return c.AdminBootstrapPin != "" && c.AdminBootstrapEmail != "" && c.AdminBootstrapPass != ""
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func positiveIntSetting(key string, fallback int) int {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("level=warn component=config msg=\"invalid %s; using default\" value=%q default=%d", key, raw, fallback)
		return fallback
	}
	return n
}
