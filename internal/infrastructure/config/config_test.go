package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"SELLERDESK_APP_NAME":          os.Getenv("SELLERDESK_APP_NAME"),
		"SELLERDESK_APP_ENV":           os.Getenv("SELLERDESK_APP_ENV"),
		"SELLERDESK_APP_PORT":          os.Getenv("SELLERDESK_APP_PORT"),
		"SELLERDESK_DATABASE_DRIVER":   os.Getenv("SELLERDESK_DATABASE_DRIVER"),
		"SELLERDESK_DATABASE_PATH":     os.Getenv("SELLERDESK_DATABASE_PATH"),
		"SELLERDESK_DATABASE_HOST":     os.Getenv("SELLERDESK_DATABASE_HOST"),
		"SELLERDESK_DATABASE_PASSWORD": os.Getenv("SELLERDESK_DATABASE_PASSWORD"),
		"SELLERDESK_SELLER_BASE_URL":   os.Getenv("SELLERDESK_SELLER_BASE_URL"),
		"SELLERDESK_SELLER_MAX_PAGES":  os.Getenv("SELLERDESK_SELLER_MAX_PAGES"),
		"SELLERDESK_REAUTH_ENABLED":    os.Getenv("SELLERDESK_REAUTH_ENABLED"),
		"SELLERDESK_REAUTH_USERNAME":   os.Getenv("SELLERDESK_REAUTH_USERNAME"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sellerdesk-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8000", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "orders.db", cfg.Database.Path)
		assert.Equal(t, "sessions/digikala_cookies.json", cfg.Seller.CredentialsFile)
		assert.False(t, cfg.Reauth.Enabled)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("loads values from environment variables with SELLERDESK prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("SELLERDESK_APP_PORT", "9100")
		os.Setenv("SELLERDESK_DATABASE_DRIVER", "postgres")
		os.Setenv("SELLERDESK_DATABASE_HOST", "db.local")
		os.Setenv("SELLERDESK_SELLER_BASE_URL", "http://localhost:8081/api/v2")
		os.Setenv("SELLERDESK_SELLER_MAX_PAGES", "5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9100", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, "http://localhost:8081/api/v2", cfg.Seller.BaseURL)
		assert.Equal(t, 5, cfg.Seller.MaxPages)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv()
		os.Setenv("SELLERDESK_DATABASE_DRIVER", "mysql")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("requires username when reauth enabled", func(t *testing.T) {
		clearEnv()
		os.Setenv("SELLERDESK_REAUTH_ENABLED", "true")

		_, err := Load()
		assert.Error(t, err)

		os.Setenv("SELLERDESK_REAUTH_USERNAME", "seller@example.com")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "seller@example.com", cfg.Reauth.Username)
	})

	t.Run("requires postgres password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("SELLERDESK_APP_ENV", "production")
		os.Setenv("SELLERDESK_DATABASE_DRIVER", "postgres")

		_, err := Load()
		assert.Error(t, err)

		os.Setenv("SELLERDESK_DATABASE_PASSWORD", "secret")
		_, err = Load()
		assert.NoError(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss:word/with?special",
		DBName:   "sellerdesk",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.NotContains(t, dsn, "p@ss:word/with?special", "password must be escaped")
}
