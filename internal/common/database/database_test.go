package database

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evbot/internal/common/config"
)

func TestRedisClient_GetSetMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))

	_, err = client.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "k", `{"class_id":1}`, time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"class_id":1}`, string(val))

	mr.FastForward(2 * time.Minute)
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClient_FromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "a", "1", 0))
	require.NoError(t, client.Del(ctx, "a"))
	assert.False(t, mr.Exists("a"))
}

func TestPostgresClient_PingAndExec(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	client := NewPostgresFromDB(db)

	mock.ExpectPing()
	mock.ExpectExec("DELETE FROM prediction_history").WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))
	res, err := client.Exec(ctx, "DELETE FROM prediction_history")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElasticsearchClient_IndexAndSearch(t *testing.T) {
	var indexed map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/evbot-predictions/_doc/abc":
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &indexed)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case r.URL.Path == "/evbot-predictions/_search":
			_, _ = w.Write([]byte(`{"hits":{"total":{"value":1}}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.IndexDocument(ctx, "evbot-predictions", "abc", map[string]interface{}{"result_type": "long"}))
	assert.Equal(t, "long", indexed["result_type"])

	var out struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	require.NoError(t, client.Search(ctx, "evbot-predictions", map[string]interface{}{"size": 0}, &out))
	assert.Equal(t, 1, out.Hits.Total.Value)
}
