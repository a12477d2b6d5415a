package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the first env file found among envFilePath (searched upwards
// from the working directory) or ./.env, then processes the environment.
// Variables already set in the process environment win over file values.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()

	for _, path := range envFilePath {
		foundPath, err := FindEnvTest(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path)
			continue
		}
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		logger.Info("Loaded environment file", "path", foundPath)
		return loadFromEnv(logger)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found in current directory")
	}
	return loadFromEnv(logger)
}

func loadFromEnv(logger *slog.Logger) (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	logger.Info("App config loaded",
		"env", cfg.Env,
		"db", maskValue(cfg.DB.Url),
		"db_migrate", cfg.DB.Migrate,
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"auth_internal_header", cfg.Auth.InternalHeader,
		"auth_internal_token", maskValue(cfg.Auth.InternalToken),
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"redis", maskValue(cfg.Redis.URL),
		"kafka_brokers", cfg.Kafka.Brokers,
		"ledger_default_currency", cfg.Ledger.DefaultCurrency,
	)
	return &cfg, nil
}

func maskValue(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}

// FindEnvTest searches for the nearest file named filename, walking up from
// the working directory. If filename is empty, it searches for .env.
func FindEnvTest(filename string) (string, error) {
	if filename == "" {
		filename = ".env"
	}
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err != nil {
			return "", err
		}
		return filename, nil
	}
	curr, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(curr, filename)
		if _, err = os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(curr)
		if parent == curr {
			break
		}
		curr = parent
	}
	return "", os.ErrNotExist
}
