package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CARDGAME"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Rules    RulesConfig    `mapstructure:"rules"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	Mode        string `mapstructure:"mode"`        // debug, release
	FinishedTTL int    `mapstructure:"finishedTTL"` // seconds a finished game stays readable
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type AgentConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"apiKey"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	MaxConcurrent  int64  `mapstructure:"maxConcurrent"`
	GameIDPrefix   string `mapstructure:"gameIdPrefix"`
}

// RulesConfig is the starting rule set of every new session.
type RulesConfig struct {
	StartHand     int  `mapstructure:"startHand"`
	Draw          int  `mapstructure:"draw"`
	MaxHand       int  `mapstructure:"maxHand"`
	PointsEnabled bool `mapstructure:"pointsEnabled"`
	PointsEnd     bool `mapstructure:"pointsEnd"`
	PointsWin     bool `mapstructure:"pointsWin"`
	PointLimit    int  `mapstructure:"pointLimit"`
	Reshuffle     bool `mapstructure:"reshuffle"`
	Jokers        bool `mapstructure:"jokers"`
	RulesCard     bool `mapstructure:"rulesCard"`
	JokerDefault  int  `mapstructure:"jokerDefault"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.finishedTTL", 600)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("redis.channel", "cardgame:events")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("agent.apiKey", "")
	v.SetDefault("agent.endpoint", "https://generativelanguage.googleapis.com/v1beta/models")
	v.SetDefault("agent.model", "gemini-2.5-flash")
	v.SetDefault("agent.timeoutSeconds", 30)
	v.SetDefault("agent.maxConcurrent", 4)
	v.SetDefault("agent.gameIdPrefix", "GAME-")
	v.SetDefault("rules.startHand", 5)
	v.SetDefault("rules.jokerDefault", 25)
}

func LoadConfig(path string) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
