package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evbot/internal/common/config"
	"evbot/internal/common/database"
	"evbot/internal/common/logger"
	"evbot/internal/history"
)

type fakeClient struct {
	pingErr error
	closed  int
}

func (c *fakeClient) Ping(context.Context) error { return c.pingErr }

func (c *fakeClient) Close() error {
	c.closed++
	return nil
}

func TestDial(t *testing.T) {
	t.Run("healthy client is kept open", func(t *testing.T) {
		c := &fakeClient{}
		got, err := dial(context.Background(), func() (*fakeClient, error) { return c, nil })
		require.NoError(t, err)
		assert.Same(t, c, got)
		assert.Zero(t, c.closed)
	})

	t.Run("failed ping closes the client", func(t *testing.T) {
		c := &fakeClient{pingErr: errors.New("connection refused")}
		got, err := dial(context.Background(), func() (*fakeClient, error) { return c, nil })
		require.Error(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 1, c.closed)
	})

	t.Run("open error is returned as is", func(t *testing.T) {
		_, err := dial(context.Background(), func() (*fakeClient, error) { return nil, errors.New("bad dsn") })
		assert.EqualError(t, err, "bad dsn")
	})
}

func TestDial_RetriesCloseEveryFailedAttempt(t *testing.T) {
	var opened []*fakeClient
	var kept *fakeClient

	err := retryWithBackoff(func() error {
		c := &fakeClient{}
		if len(opened) < 2 {
			c.pingErr = errors.New("not ready")
		}
		opened = append(opened, c)

		var err error
		kept, err = dial(context.Background(), func() (*fakeClient, error) { return c, nil })
		return err
	}, 5, time.Millisecond, zap.NewNop(), "test connection")

	require.NoError(t, err)
	require.Len(t, opened, 3)
	assert.Equal(t, 1, opened[0].closed)
	assert.Equal(t, 1, opened[1].closed)
	assert.Zero(t, opened[2].closed)
	assert.Same(t, opened[2], kept)
}

func TestNewHistory_ElasticsearchOnlyServesReads(t *testing.T) {
	const index = "evbot-predictions"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/"+index+"/_search":
			_, _ = w.Write([]byte(`{
				"hits": {"total": {"value": 5}, "hits": []},
				"aggregations": {"by_result_type": {"buckets": [{"key": "short", "doc_count": 5}]}}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Database.Elasticsearch.Index = index

	recorder, reader, err := newHistory(context.Background(), &backends{es: es}, cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	require.NotNil(t, recorder)
	require.IsType(t, &history.ElasticsearchIndexer{}, reader)

	summary, err := reader.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
}

func TestNewHistory_NoBackends(t *testing.T) {
	recorder, reader, err := newHistory(context.Background(), &backends{}, testConfig(), logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, recorder)
	assert.Nil(t, reader)
}
