package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"legaldesk/internal/ai"
	appsvc "legaldesk/internal/app"
	"legaldesk/internal/blob"
	"legaldesk/internal/cache"
	"legaldesk/internal/config"
	"legaldesk/internal/metrics"
	"legaldesk/internal/model"
	"legaldesk/internal/ocr"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/platform/database"
	rabbitmqClient "legaldesk/internal/platform/rabbitmq"
	redisClient "legaldesk/internal/platform/redis"
	"legaldesk/internal/report"
	"legaldesk/internal/repository"
	"legaldesk/internal/worker"
)

type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	MQConn  *amqp.Connection
	Metrics *metrics.Metrics

	Cases   *appsvc.CaseService
	Photos  *appsvc.PhotoService
	Files   *appsvc.FileService
	Reports *appsvc.ReportService
	Chat    *appsvc.ChatService

	OCRWorker *worker.OCRWorker
	inProcess *ocr.InProcessDispatcher

	StartedAt time.Time
}

// Deps are the opened external resources. Redis and MQConn are optional:
// without Redis chat history is read from storage only, without RabbitMQ OCR
// runs on in-process goroutines.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Blobs      blob.Store
	Generator  ai.Generator
	Recognizer ai.Recognizer
	Registry   *prometheus.Registry
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
		return nil, err
	}
	log := logger.Named("bootstrap")

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	deps := Deps{
		Config:   cfg,
		DB:       db,
		Registry: prometheus.NewRegistry(),
	}

	if cfg.Redis.Addr != "" {
		deps.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("redis not configured, chat history cache disabled")
	}

	if cfg.RabbitMQ.URL != "" {
		deps.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, log)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("rabbitmq not configured, ocr runs in process")
	}

	deps.Blobs, err = newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	client := ai.NewClient(ai.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		ChatModel:   cfg.LLM.Model,
		VisionModel: cfg.OCR.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, nil)
	deps.Generator = client
	deps.Recognizer = client

	return Build(ctx, deps)
}

// Build wires repositories, caches and services on top of deps and starts
// the OCR worker when a broker connection is present.
func Build(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	m, err := metrics.New(deps.Registry)
	if err != nil {
		return nil, err
	}

	caseRepo := repository.NewCaseRepository(deps.DB)
	photoRepo := repository.NewPhotoRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)
	fileRepo := repository.NewAdditionalFileRepository(deps.DB)
	ocrRepo := repository.NewOCRRepository(deps.DB)
	sessionRepo := repository.NewSessionRepository(deps.DB)
	messageRepo := repository.NewMessageRepository(deps.DB)

	contexts := cache.NewContextCache(
		caseRepo,
		photoRepo,
		ocrRepo,
		repository.NewContextCacheRepository(deps.DB),
		time.Duration(cfg.Cache.ContextTTLSeconds)*time.Second,
		m,
	)

	var history appsvc.HistoryCache
	if deps.Redis != nil {
		history = cache.NewSessionHistory(
			deps.Redis,
			cfg.LLM.HistoryLimit,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	runner := ocr.NewRunner(ocrRepo, deps.Recognizer, deps.Blobs, contexts, cfg.OCR.MaxImageEdge, m)

	a := &App{
		Config:    cfg,
		DB:        deps.DB,
		Redis:     deps.Redis,
		MQConn:    deps.MQConn,
		Metrics:   m,
		StartedAt: time.Now(),
	}

	var dispatcher ocr.Dispatcher
	if deps.MQConn != nil {
		a.OCRWorker = worker.NewOCRWorker(deps.MQConn, runner, cfg.RabbitMQ.OCRJobQueue)
		if err := a.OCRWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start ocr worker failed: %w", err)
		}
		dispatcher = rabbitmqClient.NewOCRJobPublisher(deps.MQConn, cfg.RabbitMQ.OCRJobQueue)
	} else {
		a.inProcess = ocr.NewInProcessDispatcher(runner)
		dispatcher = a.inProcess
	}

	a.Cases = appsvc.NewCaseService(caseRepo, photoRepo, fileRepo, contexts, deps.Blobs)
	a.Photos = appsvc.NewPhotoService(caseRepo, photoRepo, commentRepo, ocrRepo, contexts, deps.Blobs, dispatcher)
	a.Files = appsvc.NewFileService(caseRepo, fileRepo, contexts, deps.Blobs)
	a.Reports = appsvc.NewReportService(caseRepo, photoRepo, ocrRepo, report.NewRenderer(cfg.PDF.FontPath))
	a.Chat = appsvc.NewChatService(sessionRepo, messageRepo, contexts, deps.Generator, history, cfg.LLM.HistoryLimit, m)
	return a, nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "", "local":
		return blob.NewLocalStore(cfg.UploadsDir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("storage.s3_bucket is required for the s3 driver")
		}
		return blob.NewS3StoreFromEnv(ctx, cfg.S3Region, cfg.S3Endpoint, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// WaitOCR blocks until in-process OCR jobs have finished.
func (a *App) WaitOCR() {
	if a.inProcess != nil {
		a.inProcess.Wait()
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.OCRWorker != nil {
		a.OCRWorker.Close()
	}
	a.WaitOCR()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			closeErr = err
		}
	}
	logger.Sync()
	return closeErr
}
