package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/jithsungh/wisebot/internal/adapters/driven/memory"
	"github.com/jithsungh/wisebot/internal/adapters/driven/postgres"
	"github.com/jithsungh/wisebot/internal/adapters/driven/qdrant"
	postgresqueue "github.com/jithsungh/wisebot/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/jithsungh/wisebot/internal/adapters/driven/queue/redis"
	redisadapter "github.com/jithsungh/wisebot/internal/adapters/driven/redis"
	httpadapter "github.com/jithsungh/wisebot/internal/adapters/driving/http"
	"github.com/jithsungh/wisebot/internal/config"
	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
)

// memoryQueueSize bounds the in-process job queue.
const memoryQueueSize = 256

// backends holds the driven adapters chosen from configuration.
type backends struct {
	knowledge driven.KnowledgeStore
	sessions  driven.SessionStore
	jobs      driven.JobStore
	queue     driven.JobQueue
	lock      driven.DistributedLock

	runtimeConfig *domain.RuntimeConfig
	pingers       map[string]httpadapter.Pinger
	closers       []func() error
}

// Close releases connections in reverse order of creation.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			slog.Warn("close backend", "error", err)
		}
	}
}

// connectBackends picks redis over postgres over in-process for sessions,
// jobs, the queue and locks. The knowledge store follows KNOWLEDGE_BACKEND.
func connectBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{pingers: make(map[string]httpadapter.Pinger)}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	// ===== PostgreSQL (optional) =====
	var db *postgres.DB
	if cfg.Database.URL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.DefaultConfig(cfg.Database.URL)
		dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
		dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
		dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

		var err error
		db, err = postgres.Connect(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		b.closers = append(b.closers, db.Close)

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		b.pingers["postgres"] = db
		log.Println("PostgreSQL connected and schema initialized")
	}

	// ===== Redis (optional) =====
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		b.closers = append(b.closers, redisClient.Close)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		b.pingers["redis"] = redisPinger{redisClient}
		log.Println("Redis connected")
	}

	// ===== Knowledge store =====
	switch cfg.Knowledge.Backend {
	case "postgres":
		b.knowledge = postgres.NewKnowledgeStore(db)
	case "qdrant":
		store, err := qdrant.NewKnowledgeStore(qdrant.Config{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.knowledge = store
		b.pingers["qdrant"] = store
	default:
		b.knowledge = memory.NewKnowledgeStore()
	}
	log.Printf("Using %s knowledge store", cfg.Knowledge.Backend)

	// ===== Session store =====
	sessionBackend := "memory"
	switch {
	case redisClient != nil:
		b.sessions = redisadapter.NewSessionStore(redisClient, cfg.Redis.SessionTTL)
		sessionBackend = "redis"
	case db != nil:
		b.sessions = postgres.NewSessionStore(db)
		sessionBackend = "postgres"
	default:
		b.sessions = memory.NewSessionStore()
	}
	log.Printf("Using %s session store", sessionBackend)

	// ===== Job store, queue and lock =====
	queueBackend := "memory"
	switch {
	case redisClient != nil:
		queue, err := redisqueue.NewQueue(ctx, redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("create job queue: %w", err)
		}
		b.queue = queue
		b.jobs = redisadapter.NewJobStore(redisClient)
		b.lock = redisadapter.NewLock(redisClient)
		queueBackend = "redis"
	case db != nil:
		b.queue = postgresqueue.NewQueue(db.DB)
		b.jobs = postgres.NewJobStore(db)
		b.lock = postgres.NewAdvisoryLock(db)
		queueBackend = "postgres"
	default:
		b.queue = memory.NewJobQueue(memoryQueueSize)
		b.jobs = memory.NewJobStore()
		b.lock = memory.NewLock()
	}
	b.closers = append(b.closers, b.queue.Close)
	b.pingers["queue"] = b.queue
	log.Printf("Using %s job queue", queueBackend)

	b.runtimeConfig = domain.NewRuntimeConfig(cfg.Knowledge.Backend, sessionBackend, queueBackend)
	ok = true
	return b, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
