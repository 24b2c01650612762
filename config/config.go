package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log      Logger   `mapstructure:"logger"`
	DB       Database `mapstructure:"database"`
	API      API      `mapstructure:"api"`
	Binance  Binance  `mapstructure:"binance"`
	Gemini   Gemini   `mapstructure:"gemini"`
	Cache    Cache    `mapstructure:"cache"`
	Backtest Backtest `mapstructure:"backtest"`
}

type Logger struct {
	Level           string `mapstructure:"level"`
	Encoding        string `mapstructure:"encoding"`
	AlertWebhookURL string `mapstructure:"alert_webhook_url"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port            int           `mapstructure:"port"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	RateExpiresIn   time.Duration `mapstructure:"rate_expires_in"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Binance struct {
	BaseURL             string        `mapstructure:"base_url"`
	APIKey              string        `mapstructure:"api_key"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	KlinesLimit         int           `mapstructure:"klines_limit"`
	RetryCount          int           `mapstructure:"retry_count"`
}

type Gemini struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseModel           string        `mapstructure:"base_model"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	MaxTokenPerMinute   int           `mapstructure:"max_token_per_minute"`
	MaxOutputTokens     int32         `mapstructure:"max_output_tokens"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	CandleExpiration  time.Duration `mapstructure:"candle_expiration"`
}

type Backtest struct {
	InitialCapital   float64 `mapstructure:"initial_capital"`
	Commission       float64 `mapstructure:"commission"`
	MaxCandles       int     `mapstructure:"max_candles"`
	BatchConcurrency int     `mapstructure:"batch_concurrency"`
	MaxBatchSize     int     `mapstructure:"max_batch_size"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.log_level", "Warn")

	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit", 10)
	viper.SetDefault("api.rate_burst", 30)
	viper.SetDefault("api.rate_expires_in", 3*time.Minute)
	viper.SetDefault("api.shutdown_timeout", 10*time.Second)

	viper.SetDefault("binance.base_url", "https://api.binance.com")
	viper.SetDefault("binance.timeout", 30*time.Second)
	viper.SetDefault("binance.max_request_per_minute", 300)
	viper.SetDefault("binance.klines_limit", 1000)
	viper.SetDefault("binance.retry_count", 3)

	viper.SetDefault("gemini.base_model", "gemini-2.5-flash")
	viper.SetDefault("gemini.timeout", 60*time.Second)
	viper.SetDefault("gemini.max_request_per_minute", 10)
	viper.SetDefault("gemini.max_token_per_minute", 250000)
	viper.SetDefault("gemini.max_output_tokens", 1024)

	viper.SetDefault("cache.default_expiration", 10*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 20*time.Minute)
	viper.SetDefault("cache.candle_expiration", time.Hour)

	viper.SetDefault("backtest.initial_capital", 10000)
	viper.SetDefault("backtest.commission", 0.0005)
	viper.SetDefault("backtest.max_candles", 100000)
	viper.SetDefault("backtest.batch_concurrency", 4)
	viper.SetDefault("backtest.max_batch_size", 20)
}

func Load() (*Config, error) {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded:", err)
	}

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
