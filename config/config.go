package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DefaultSystemPrompt = `You are the friendly WhatsApp shopping assistant for our store.
Help customers discover products, manage their cart and place orders.
Keep replies short and clear, use emojis sparingly, and always answer in the customer's language.
Prices are in Sri Lankan Rupees (Rs.).`

type Config struct {
	DatabaseURL   string `envconfig:"DATABASE_URL"    required:"true"`
	HTTPPort      string `envconfig:"HTTP_PORT"       default:":8080"`
	LogLevel      string `envconfig:"LOG_LEVEL"       default:"info"`
	ServerBaseURL string `envconfig:"SERVER_BASE_URL" default:"http://localhost:8080"`

	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS"    default:"10"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS"    default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`

	OllamaURL         string        `envconfig:"OLLAMA_URL"         default:"http://localhost:11434"`
	OllamaModel       string        `envconfig:"OLLAMA_MODEL"       default:"llama3.2"`
	OllamaTemperature float64       `envconfig:"OLLAMA_TEMPERATURE" default:"0.7"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`

	ChannelGatewayURL string        `envconfig:"CHANNEL_GATEWAY_URL" default:"http://localhost:3001"`
	ChannelTimeout    time.Duration `envconfig:"CHANNEL_TIMEOUT"     default:"30s"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB"          default:"0"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	HistoryMaxEntries int           `envconfig:"HISTORY_MAX_ENTRIES" default:"20"`
	HistoryMaxBytes   int           `envconfig:"HISTORY_MAX_BYTES"   default:"16384"`
	HistoryTTL        time.Duration `envconfig:"HISTORY_TTL"         default:"168h"`

	WorkerLanes      int           `envconfig:"WORKER_LANES"       default:"8"`
	WorkerQueueDepth int           `envconfig:"WORKER_QUEUE_DEPTH" default:"32"`
	MessageTimeout   time.Duration `envconfig:"MESSAGE_TIMEOUT"    default:"150s"`

	UploadDir string `envconfig:"UPLOAD_DIR" default:"./public/uploads"`

	AdminPhoneNumber  string `envconfig:"ADMIN_PHONE_NUMBER"`
	CountryCode       string `envconfig:"COUNTRY_CODE"        default:"94"`
	DeliveryFee       string `envconfig:"DELIVERY_FEE"        default:"500"`
	FreeDeliveryAbove string `envconfig:"FREE_DELIVERY_ABOVE" default:"3000"`
	StoreName         string `envconfig:"STORE_NAME"          default:"Our Store"`

	WebhookToken   string `envconfig:"WEBHOOK_TOKEN"`
	DashboardToken string `envconfig:"DASHBOARD_TOKEN"`

	ImageSendDelay  time.Duration `envconfig:"IMAGE_SEND_DELAY" default:"800ms"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		if err := envconfig.Process("", &config); err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}
		config.ServerBaseURL = strings.TrimRight(config.ServerBaseURL, "/")

		logger.Infof("Configuration loaded: HTTP Port=%s, LogLevel=%s, Model=%s", config.HTTPPort, config.LogLevel, config.OllamaModel)
		if config.RedisAddr == "" {
			logger.Info("Configuration loaded: REDIS_ADDR not set, using in-memory history and no catalog cache")
		}
		if config.AdminPhoneNumber == "" {
			logger.Warn("Configuration loaded: ADMIN_PHONE_NUMBER is not set, admin functions stay locked until the setting is stored")
		}
	})
	return &config
}

// Settings are the defaults the settings table falls back to.
func (c *Config) Settings(logger *logrus.Logger) domain.Settings {
	return domain.Settings{
		AutoReplyEnabled:  true,
		AIModeEnabled:     true,
		AIFallbackEnabled: true,
		SystemPrompt:      DefaultSystemPrompt,
		HistoryLimit:      10,
		AdminPhone:        c.AdminPhoneNumber,
		DeliveryFee:       money(logger, "DELIVERY_FEE", c.DeliveryFee, 500),
		FreeDeliveryAbove: money(logger, "FREE_DELIVERY_ABOVE", c.FreeDeliveryAbove, 3000),
		StoreName:         c.StoreName,
	}
}

func money(logger *logrus.Logger, key, raw string, fallback int64) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		logger.Warnf("Invalid %s %q, using default %d", key, raw, fallback)
		return decimal.NewFromInt(fallback)
	}
	return d
}
