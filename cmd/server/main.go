package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"e2e_relay/internal/config"
	"e2e_relay/internal/queue"
	"e2e_relay/internal/receipt"
	fileRepo "e2e_relay/internal/repository/file"
	"e2e_relay/internal/sealedurl"
	redisSvc "e2e_relay/internal/service/redis"
	"e2e_relay/internal/service/server"
	"e2e_relay/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	log.Init(logger)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	redisService := redisSvc.NewRedis(rdb)

	receipts := receipt.NewMongoStore(db)
	if err := receipts.EnsureIndexes(ctx); err != nil {
		log.Fatal("receipt indexes failed", zap.Error(err))
	}

	files, err := fileRepo.NewFileRepo(db)
	if err != nil {
		log.Fatal("file repo init failed", zap.Error(err))
	}

	q := queue.New(queue.NewRedisStore(redisService, cfg.MaxQueueDepth, cfg.EvictionPolicy))
	issuer := sealedurl.NewIssuer(sealedurl.NewRedisStore(redisService))
	hub := server.NewHub()

	s := server.NewHttpServer(cfg, q, receipts, issuer, files, hub, redisService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.Router(),
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
