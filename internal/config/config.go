package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Match    MatchConfig    `mapstructure:"match"`
	Services ServicesConfig `mapstructure:"services"`
	Features FeatureConfig  `mapstructure:"features"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

// MatchConfig tunes the matchmaking queue. MatchTimeout doubles as the
// waiter record TTL and the basis of the expiresAt hint returned to
// queued callers.
type MatchConfig struct {
	MatchTimeout      time.Duration `mapstructure:"matchTimeout"`
	HandshakeTTL      time.Duration `mapstructure:"handshakeTtl"`
	FallbackThreshold time.Duration `mapstructure:"fallbackThreshold"`
	FallbackCheck     time.Duration `mapstructure:"fallbackCheck"`
	MatchRecordTTL    time.Duration `mapstructure:"matchRecordTtl"`
	StaleGrace        time.Duration `mapstructure:"staleGrace"`
	StaleSessionGrace time.Duration `mapstructure:"staleSessionGrace"`
	StaleCeiling      time.Duration `mapstructure:"staleCeiling"`
	SessionRetryDelay time.Duration `mapstructure:"sessionRetryDelay"`
	ClaimTTL          time.Duration `mapstructure:"claimTtl"`
}

type ServicesConfig struct {
	QuestionBaseURL string        `mapstructure:"questionBaseUrl"`
	CollabBaseURL   string        `mapstructure:"collabBaseUrl"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
}

type FeatureConfig struct {
	SkipAuth bool `mapstructure:"skipAuth"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "4001")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("match.matchTimeout", "120s")
	viper.SetDefault("match.handshakeTtl", "15s")
	viper.SetDefault("match.fallbackThreshold", "60s")
	viper.SetDefault("match.fallbackCheck", "5s")
	viper.SetDefault("match.matchRecordTtl", "180s")
	viper.SetDefault("match.staleGrace", "30s")
	viper.SetDefault("match.staleSessionGrace", "60s")
	viper.SetDefault("match.staleCeiling", "30m")
	viper.SetDefault("match.sessionRetryDelay", "200ms")
	viper.SetDefault("match.claimTtl", "10s")
	viper.SetDefault("services.questionBaseUrl", "http://localhost:5050")
	viper.SetDefault("services.collabBaseUrl", "http://localhost:3004")
	viper.SetDefault("services.requestTimeout", "2s")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
