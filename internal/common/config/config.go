package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	API struct {
		BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api/v1"`
		Timeout time.Duration `env:"API_TIMEOUT" envDefault:"15s"`

		// Повторы запросов: только идемпотентные методы и сетевые ошибки
		RetryLimit       int           `env:"API_RETRY_LIMIT" envDefault:"2"`
		RetryStatusCodes []int         `env:"API_RETRY_STATUS_CODES" envSeparator:"," envDefault:"408,413,429,500,502,503,504"`
		RetryBackoff     time.Duration `env:"API_RETRY_BACKOFF" envDefault:"300ms"`
	}

	Auth struct {
		DevMode        bool          `env:"DEV_MODE" envDefault:"false"`
		DevAccessToken string        `env:"DEV_ACCESS_TOKEN" envDefault:""`
		InitData       string        `env:"TELEGRAM_INIT_DATA" envDefault:""`
		InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE" envDefault:"24h"`
	}

	Storage struct {
		// Постоянное локальное хранилище (токен, отметки emoji-условий)
		LocalPath string `env:"LOCAL_STORAGE_PATH" envDefault:""`

		// Сессионный кэш результатов запросов: memory или redis
		SessionBackend    string        `env:"SESSION_CACHE_BACKEND" envDefault:"memory"`
		SessionQuotaBytes int           `env:"SESSION_CACHE_QUOTA_BYTES" envDefault:"5242880"`
		SessionTTL        time.Duration `env:"SESSION_CACHE_TTL" envDefault:"24h"`

		RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
		RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
		RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Wallet struct {
		ManifestURL      string        `env:"TONCONNECT_MANIFEST_URL" envDefault:"https://tools.tg/tonconnect-manifest.json"`
		TaskPollInterval time.Duration `env:"WALLET_TASK_POLL_INTERVAL" envDefault:"1s"`
		TaskPollTimeout  time.Duration `env:"WALLET_TASK_POLL_TIMEOUT" envDefault:"2m"`
	}

	UI struct {
		ToastFilters    []string      `env:"TOAST_FILTERS" envSeparator:"," envDefault:"rate limit,Too Many Requests,Operation aborted,USER_REJECTS_ERROR"`
		BotPollInterval time.Duration `env:"BOT_POLL_INTERVAL" envDefault:"3s"`
		MarkdownStyle   string        `env:"MARKDOWN_STYLE"`
		DisableColors   bool          `env:"NO_COLOR" envDefault:"false"`
	}

	Sandbox struct {
		Port        int           `env:"SANDBOX_PORT" envDefault:"8080"`
		Origin      string        `env:"SANDBOX_ORIGIN" envDefault:"http://localhost:3000"`
		BotToken    string        `env:"BOT_TOKEN" envDefault:""`
		JWTSecret   string        `env:"JWT_SECRET" envDefault:"sandbox-secret"`
		ProofDomain string        `env:"TON_PROOF_DOMAIN" envDefault:"localhost:3000"`
		TokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`

		// Пусто: администратор любой вошедший пользователь
		AdminIDs  []int64       `env:"SANDBOX_ADMIN_IDS" envSeparator:","`
		ProofTTL  time.Duration `env:"TON_PROOF_TTL" envDefault:"15m"`
		TaskDelay time.Duration `env:"SANDBOX_TASK_DELAY" envDefault:"500ms"`
		Seed      bool          `env:"SANDBOX_SEED" envDefault:"true"`
	}
}

func Load() (*Config, error) {
	// .env необязателен: в production переменные задаются окружением
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
