package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"kasirlokal/internal/logger"
)

type Config struct {
	Port                   string
	BindHost               string
	AllowedOrigin          string
	DBDriver               string
	DBDSN                  string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	CatalogCacheTTLSeconds int
	AuthSecret             string
	AccessTokenTTLMinutes  int
	LegacyDataPath         string
	SeedSampleData         bool
	SeedAdminPassword      string
	SeedCashierPassword    string
	Log                    logger.Config
}

// Load reads .env (if present), an optional file named by POS_CONFIG_FILE
// and the environment, in increasing order of precedence.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("POS_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("config file ignored", "component", "config", "path", path, "error", err)
		}
	}

	cacheTTL := v.GetInt("CATALOG_CACHE_TTL_SECONDS")
	if cacheTTL < 1 {
		cacheTTL = 60
	}
	tokenTTL := v.GetInt("ACCESS_TOKEN_TTL_MINUTES")
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = v.GetString("LOG_LEVEL")
	logCfg.Format = v.GetString("LOG_FORMAT")
	logCfg.Output = v.GetString("LOG_OUTPUT")
	if file := v.GetString("LOG_FILE"); file != "" {
		logCfg.FilePath = file
	}

	return Config{
		Port:                   v.GetString("PORT"),
		BindHost:               v.GetString("BIND_HOST"),
		AllowedOrigin:          v.GetString("ALLOWED_ORIGIN"),
		DBDriver:               strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		DBDSN:                  v.GetString("DB_DSN"),
		RedisAddr:              strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		CatalogCacheTTLSeconds: cacheTTL,
		AuthSecret:             strings.TrimSpace(v.GetString("AUTH_SECRET")),
		AccessTokenTTLMinutes:  tokenTTL,
		LegacyDataPath:         strings.TrimSpace(v.GetString("LEGACY_DATA_PATH")),
		SeedSampleData:         v.GetBool("SEED_SAMPLE_DATA"),
		SeedAdminPassword:      strings.TrimSpace(v.GetString("SEED_ADMIN_PASSWORD")),
		SeedCashierPassword:    strings.TrimSpace(v.GetString("SEED_CASHIER_PASSWORD")),
		Log:                    logCfg,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("BIND_HOST", "127.0.0.1")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "kasirlokal.db")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CATALOG_CACHE_TTL_SECONDS", 60)
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 480)
	v.SetDefault("SEED_SAMPLE_DATA", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
}

func (c Config) Address() string {
	return net.JoinHostPort(c.BindHost, c.Port)
}

func (c Config) String() string {
	return fmt.Sprintf("addr=%s db=%s redis=%t", c.Address(), c.DBDriver, c.RedisAddr != "")
}
