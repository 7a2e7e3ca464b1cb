package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func TestConstructors_Messages(t *testing.T) {
	tests := []struct {
		name     string
		err      *StandardError
		code     ErrorCode
		message  string
		category string
		status   int
	}{
		{
			name:     "missing fields",
			err:      NewMissingFieldsError([]string{"voltage", "cycles"}),
			code:     ErrCodeMissingFields,
			message:  "Missing required fields for prediction: voltage, cycles",
			category: "VALIDATION",
			status:   http.StatusBadRequest,
		},
		{
			name:     "invalid fields",
			err:      NewInvalidFieldsError([]string{"soc"}),
			code:     ErrCodeInvalidFields,
			message:  "Invalid values provided for: soc",
			category: "VALIDATION",
			status:   http.StatusBadRequest,
		},
		{
			name:     "encoder missing",
			err:      NewEncoderNotConfiguredError("Charging Mode"),
			code:     ErrCodeEncoderNotConfigured,
			message:  "Encoder not found for column 'Charging Mode'.",
			category: "ENCODING",
			status:   http.StatusInternalServerError,
		},
		{
			name:     "unknown category",
			err:      NewUnknownCategoryError("EV Model", "Roadster"),
			code:     ErrCodeUnknownCategory,
			message:  "Unknown value 'Roadster' for column 'EV Model'",
			category: "ENCODING",
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "model unavailable",
			err:      NewModelUnavailableError(fmt.Errorf("open ev_model.json: no such file")),
			code:     ErrCodeModelUnavailable,
			message:  "Prediction model is not available",
			category: "ASSET",
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "storage unavailable",
			err:      NewStorageUnavailableError("postgres"),
			code:     ErrCodeStorageUnavailable,
			message:  "postgres storage is not available",
			category: "STORAGE",
			status:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.message, tt.err.Error())
			assert.Equal(t, tt.category, GetErrorCategory(tt.err.Code))
			assert.Equal(t, tt.status, HTTPStatus(tt.err.Code))
		})
	}
}

func TestAs_UnwrapsWrappedErrors(t *testing.T) {
	base := NewInvalidFieldsError([]string{"soc", "cycles"})
	wrapped := fmt.Errorf("normalize: %w", base)

	stdErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, stdErr)
	assert.Equal(t, []string{"soc", "cycles"}, Fields(wrapped))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsEncoding(wrapped))
}

func TestModelUnavailable_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := NewModelUnavailableError(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsAsset(err))
	assert.Contains(t, err.String(), "disk gone")
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), CodeOf(fmt.Errorf("boom")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeOf(fmt.Errorf("boom"))))
}

func TestHandleHTTPError_WritesEnvelope(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", nil)
	h.HandleHTTPError(rec, req, NewMissingFieldsError([]string{"voltage"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, ErrCodeMissingFields, env.Error.Code)
	assert.Equal(t, "Missing required fields for prediction: voltage", env.Error.Message)
	assert.Equal(t, []string{"voltage"}, env.Error.Fields)

	require.Len(t, log.messages, 1)
	assert.Equal(t, "/api/predict", log.fields[0]["path"])
}

func TestHandleHTTPError_PlainErrorIsInternal(t *testing.T) {
	h := NewErrorHandler(nil)

	rec := httptest.NewRecorder()
	h.HandleHTTPError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("secret stack"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret stack")
}
