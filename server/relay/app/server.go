package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"relay_server/server/common/infra/cache"
	"relay_server/server/common/infra/db"
	"relay_server/server/common/infra/object"
	relayapi "relay_server/server/relay/api"
	"relay_server/server/relay/repository"
	"relay_server/server/relay/service"
	"relay_server/server/relay/storage"
)

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool
	Redis      *redis.Client

	stopJanitor context.CancelFunc
}

// NewServer wires every dependency before the listener exists: Postgres,
// MinIO, and Redis must all answer or startup fails, so no request ever
// reaches a half-initialized process.
func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}
	transferRepo := repository.NewTransferRepository(dbPool)
	if err := transferRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure transfers schema: %w", err)
	}

	minioClient, err := object.NewClient(object.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize minio: %w", err)
	}
	if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
		return nil, fmt.Errorf("ensure minio bucket: %w", err)
	}

	redisClient := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	if err := cache.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	blobs := storage.NewMinioStore(minioClient, cfg.MinioBucket)
	recordCache := service.NewRecordCache(redisClient)
	transferSvc := service.NewTransferService(transferRepo, blobs, recordCache, cfg.Retention)
	janitor := service.NewJanitor(transferRepo, blobs, cfg.Retention, cfg.SweepInterval)

	h := relayapi.NewHandler(transferSvc, cfg.MaxUploadBytes, dbPool.Ping)
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Uploads and downloads can run long; only header reads and idle
		// connections get tight deadlines.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go janitor.Run(janitorCtx)

	return &Server{
		HTTPServer:  httpServer,
		DB:          dbPool,
		Redis:       redisClient,
		stopJanitor: stopJanitor,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTPServer.Shutdown(ctx)
	s.stopJanitor()
	if s.DB != nil {
		s.DB.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	return err
}
