package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL                    string
	TokenA                    string
	TokenB                    string
	Slippage                  float64
	AllowConstantProductFlash bool
	Parallel                  int
	QuoteTimeout              time.Duration
	MaxRetries                int
	RetryBackoff              time.Duration
	V3Factory                 string
	PairFactory               string
	Quoter                    string
	Out                       string
	PGDSN                     string
	LogLevel                  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("slippage", 0.005)
	v.SetDefault("parallel", 4)
	v.SetDefault("quote-timeout", 10*time.Second)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("allow-cp-flash", false)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:                    v.GetString("rpc"),
		TokenA:                    v.GetString("token-a"),
		TokenB:                    v.GetString("token-b"),
		Slippage:                  v.GetFloat64("slippage"),
		AllowConstantProductFlash: v.GetBool("allow-cp-flash"),
		Parallel:                  v.GetInt("parallel"),
		QuoteTimeout:              v.GetDuration("quote-timeout"),
		MaxRetries:                v.GetInt("max-retries"),
		RetryBackoff:              v.GetDuration("retry-backoff"),
		V3Factory:                 v.GetString("v3-factory"),
		PairFactory:               v.GetString("pair-factory"),
		Quoter:                    v.GetString("quoter"),
		Out:                       v.GetString("out"),
		PGDSN:                     v.GetString("pg-dsn"),
		LogLevel:                  v.GetString("log-level"),
	}

	return cfg, nil
}
