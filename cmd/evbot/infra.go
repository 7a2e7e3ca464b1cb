package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"evbot/internal/alerts"
	"evbot/internal/common/aws"
	"evbot/internal/common/config"
	"evbot/internal/common/database"
	"evbot/internal/common/logger"
	"evbot/internal/history"
)

// backends holds the optional storage clients. A disabled backend stays nil.
type backends struct {
	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	redis    *database.RedisClient
}

func connect(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Database.Postgres.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			b.postgres, err = dial(ctx, func() (*database.PostgresClient, error) {
				return database.NewPostgres(cfg.Database.Postgres)
			})
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Database.Elasticsearch.Enabled {
		err := retryWithBackoff(func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			b.es = es
			return nil
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			b.Close()
			return nil, err
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Database.Redis.Enabled || cfg.Model.CacheEnabled {
		err := retryWithBackoff(func() error {
			var err error
			b.redis, err = dial(ctx, func() (*database.RedisClient, error) {
				return database.NewRedis(cfg.Database.Redis)
			})
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			b.Close()
			return nil, err
		}
		zapLog.Info("Redis connected successfully")
	}

	return b, nil
}

// pingCloser is a storage client that holds connections until closed.
type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// dial opens a client and pings it. A client that fails the ping is closed
// so a retry does not leak its pool.
func dial[C pingCloser](ctx context.Context, open func() (C, error)) (C, error) {
	var zero C
	client, err := open()
	if err != nil {
		return zero, err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return zero, err
	}
	return client, nil
}

func (b *backends) Close() {
	if b.postgres != nil {
		_ = b.postgres.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// newHistory prepares every enabled store. Postgres serves the read endpoints when both are on.
func newHistory(ctx context.Context, b *backends, cfg *config.Config, log logger.Logger) (history.Recorder, history.Reader, error) {
	var recorders []history.Recorder
	var reader history.Reader

	if b.postgres != nil {
		store := history.NewPostgresStore(b.postgres)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		recorders = append(recorders, store)
		reader = store
	}

	if b.es != nil {
		indexer := history.NewElasticsearchIndexer(b.es, cfg.Database.Elasticsearch.Index)
		if err := indexer.EnsureIndex(ctx); err != nil {
			return nil, nil, err
		}
		recorders = append(recorders, indexer)
		if reader == nil {
			reader = indexer
		}
	}

	if len(recorders) == 0 {
		log.Info("Prediction history disabled", nil)
		return nil, nil, nil
	}
	return history.NewFanout(log, recorders...), reader, nil
}

func newAlertChannels(ctx context.Context, cfg config.AlertsConfig) (alerts.Publisher, alerts.Mailer, error) {
	var publisher alerts.Publisher
	var mailer alerts.Mailer

	if cfg.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		publisher = client
	}
	if cfg.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		mailer = client
	}
	return publisher, mailer, nil
}
