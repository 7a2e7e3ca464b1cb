package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/handlers"
	"evbot/internal/models"
)

// ==========================
// Mock Reader
// ==========================

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Summary(ctx context.Context) (*models.HistorySummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HistorySummary), args.Error(1)
}

func (m *MockReader) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PredictionRecord), args.Error(1)
}

func newMux(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	deps.Logger = logger.NewTestLogger(t)
	h := NewHandler(&Config{Enabled: true, Timeout: time.Second}, deps)
	mux := http.NewServeMux()
	handlers.Register(mux, h.Routes())
	return mux
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_Summary(t *testing.T) {
	reader := new(MockReader)
	reader.On("Summary", mock.Anything).Return(&models.HistorySummary{
		Total:        3,
		ByResultType: map[models.ResultType]int{models.ResultTypeShort: 2, models.ResultTypeLong: 1},
	}, nil)

	rec := get(newMux(t, Dependencies{Reader: reader}), "/api/history/summary")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":3,"by_result_type":{"short":2,"long":1}}`, rec.Body.String())
	reader.AssertExpectations(t)
}

func TestHandler_Recent(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		limit int
	}{
		{"default", "", 20},
		{"explicit", "?limit=5", 5},
		{"zero means default", "?limit=0", 20},
		{"capped", "?limit=1000", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockReader)
			reader.On("Recent", mock.Anything, tt.limit).Return([]models.PredictionRecord{{
				ID:         "rec-1",
				Source:     models.SourceAPI,
				ClassID:    0,
				ResultType: models.ResultTypeShort,
				CreatedAt:  created,
			}}, nil)

			rec := get(newMux(t, Dependencies{Reader: reader}), "/api/history/recent"+tt.query)

			require.Equal(t, http.StatusOK, rec.Code)
			var out RecentOutput
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.Equal(t, tt.limit, out.Limit)
			require.Len(t, out.Records, 1)
			assert.Equal(t, "rec-1", out.Records[0].ID)
			reader.AssertExpectations(t)
		})
	}
}

func TestHandler_Recent_EmptyIsArray(t *testing.T) {
	reader := new(MockReader)
	reader.On("Recent", mock.Anything, 20).Return(nil, nil)

	rec := get(newMux(t, Dependencies{Reader: reader}), "/api/history/recent")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"limit":20,"records":[]}`, rec.Body.String())
}

func TestHandler_Errors(t *testing.T) {
	failing := new(MockReader)
	failing.On("Summary", mock.Anything).Return(nil, apperrors.NewStorageQueryFailedError("summary", errors.New("connection refused")))

	tests := []struct {
		name   string
		deps   Dependencies
		target string
		status int
		code   apperrors.ErrorCode
	}{
		{"summary without storage", Dependencies{}, "/api/history/summary", http.StatusServiceUnavailable, apperrors.ErrCodeStorageUnavailable},
		{"recent without storage", Dependencies{}, "/api/history/recent", http.StatusServiceUnavailable, apperrors.ErrCodeStorageUnavailable},
		{"bad limit", Dependencies{Reader: new(MockReader)}, "/api/history/recent?limit=abc", http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
		{"negative limit", Dependencies{Reader: new(MockReader)}, "/api/history/recent?limit=-1", http.StatusBadRequest, apperrors.ErrCodeInvalidRequest},
		{"query failure", Dependencies{Reader: failing}, "/api/history/summary", http.StatusInternalServerError, apperrors.ErrCodeStorageQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newMux(t, tt.deps), tt.target)

			require.Equal(t, tt.status, rec.Code)
			var env apperrors.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
