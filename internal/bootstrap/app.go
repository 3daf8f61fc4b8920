package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"framecoach/internal/ai"
	"framecoach/internal/config"
	"framecoach/internal/model"
	rabbitmqClient "framecoach/internal/platform/rabbitmq"
	redisClient "framecoach/internal/platform/redis"
	sqliteClient "framecoach/internal/platform/sqlite"
	"framecoach/internal/repository"
	"framecoach/internal/storage"
	"framecoach/internal/worker"
)

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Files       *storage.FileStore
	ImageEditor *ai.ImageEditClient
	Worker      *worker.AnalysisPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	db, err := sqliteClient.New(ctx, cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Analysis{}, &model.Edit{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewFileStore(cfg.Upload.StorageDir)
	if err != nil {
		return nil, err
	}

	var imageEditor *ai.ImageEditClient
	if cfg.LLM.APIKey != "" && cfg.LLM.EditModel != "" {
		imageEditor, err = ai.NewImageEditClient(ctx, cfg.LLM.APIKey, cfg.LLM.EditModel)
		if err != nil {
			return nil, err
		}
	}

	analysisRepo := repository.NewAnalysisRepository(db)
	persistWorker := worker.NewAnalysisPersistWorker(mqConn, analysisRepo, cfg.RabbitMQ.AnalysisPersistQueue)
	if err := persistWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start analysis worker failed: %w", err)
	}

	return &App{
		Config:      cfg,
		DB:          db,
		Redis:       redisCli,
		MQConn:      mqConn,
		Files:       files,
		ImageEditor: imageEditor,
		Worker:      persistWorker,
		StartedAt:   time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
