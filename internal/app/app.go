package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dumelo/kolo/internal/cache"
	"github.com/dumelo/kolo/internal/config"
	"github.com/dumelo/kolo/internal/env"
	"github.com/dumelo/kolo/internal/errHandler"
	"github.com/dumelo/kolo/internal/file"
	"github.com/dumelo/kolo/internal/gateway"
	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/jarbalance"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/smtp"
	"github.com/dumelo/kolo/internal/stream"
	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items as and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	Aggregator   *jarbalance.Aggregator
	Eganow       *gateway.EganowClient
	Paystack     *gateway.PaystackClient
	FileUploader *file.FileUploader
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Kolo <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")
	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Paystack.SecretKey = env.GetString("PAYSTACK_SECRET_KEY", "")
	cfg.Paystack.BaseURL = env.GetString("PAYSTACK_BASE_URL", "https://api.paystack.co")

	cfg.Eganow.ApiKey = env.GetString("EGANOW_API_KEY", "")
	cfg.Eganow.ApiSecret = env.GetString("EGANOW_API_SECRET", "")
	cfg.Eganow.BaseURL = env.GetString("EGANOW_BASE_URL", "https://api.eganow.com")

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, mailer, logger, cfg.BaseURL)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		errorHandler: errorHandler,
	}

	app.Helper = helper.New(&cfg.BaseURL, &app.WG, errorHandler)

	app.Kafka = stream.New(cfg.KafkaServers)
	app.Cache = cache.New(cfg.RedisServer, 0)

	app.Aggregator = jarbalance.New(db.Jar(), db.Transaction(), logger)

	app.Eganow = gateway.NewEganowClient(cfg.Eganow.BaseURL, cfg.Eganow.ApiKey, cfg.Eganow.ApiSecret, app.Cache)
	app.Paystack = gateway.NewPaystackClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)

	app.FileUploader = file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	return app, nil
}
