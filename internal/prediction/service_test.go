package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/models"
)

type recordedStage struct {
	stage string
	err   error
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []recordedStage
}

func (r *stageRecorder) RecordStage(_ context.Context, stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, recordedStage{stage, err})
}

func stubService(t *testing.T, c Classifier, opts ...Option) *Service {
	t.Helper()
	return fingerprintedService(t, c, "stub-model", opts...)
}

func fingerprintedService(t *testing.T, c Classifier, fingerprint string, opts ...Option) *Service {
	t.Helper()
	cache := NewAssetCache(AssetLoaderFunc(func(ctx context.Context) (*Assets, error) {
		return &Assets{Classifier: c, Encoders: loadFixtureEncoders(t), Fingerprint: fingerprint}, nil
	}), logger.NewNoOpLogger())
	return NewService(cache, logger.NewNoOpLogger(), opts...)
}

func TestService_Predict(t *testing.T) {
	svc := newFixtureService(t)

	tests := []struct {
		name    string
		payload models.RawPayload
		classID int
		rt      models.ResultType
		message string
	}{
		{"short", shortPayload(), 0, models.ResultTypeShort, "Optimal Charging: Short Duration - Excellent battery health!"},
		{"medium", mediumPayload(), 1, models.ResultTypeMedium, "Optimal Charging: Medium Duration - Normal battery condition."},
		{"long", longPayload(), 2, models.ResultTypeLong, "Optimal Charging: Long Duration - Battery maintenance recommended."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Predict(context.Background(), tt.payload)
			require.NoError(t, err)

			assert.Equal(t, tt.classID, result.ClassID)
			assert.Equal(t, tt.rt, result.ResultType)
			assert.Equal(t, tt.message, result.Message)
			assert.Equal(t, "Model A", result.Inputs[ColumnEVModel])
		})
	}
}

func TestService_Predict_ValidationStopsEarly(t *testing.T) {
	stages := &stageRecorder{}
	svc := stubService(t, &stubClassifier{}, WithStageRecorder(stages))

	p := shortPayload()
	delete(p, "soc")

	_, err := svc.Predict(context.Background(), p)
	assert.Equal(t, apperrors.ErrCodeMissingFields, apperrors.CodeOf(err))

	require.Len(t, stages.stages, 1)
	assert.Equal(t, "normalize", stages.stages[0].stage)
	assert.Error(t, stages.stages[0].err)
}

func TestService_Predict_RecordsStages(t *testing.T) {
	stages := &stageRecorder{}
	svc := stubService(t, &stubClassifier{class: 1}, WithStageRecorder(stages))

	_, err := svc.Predict(context.Background(), shortPayload())
	require.NoError(t, err)

	var names []string
	for _, s := range stages.stages {
		names = append(names, s.stage)
		assert.NoError(t, s.err)
	}
	assert.Equal(t, []string{"normalize", "encode", "classify"}, names)
}

// sdkTracer adapts an SDK tracer to the Tracer interface.
type sdkTracer struct {
	tracer trace.Tracer
}

func (s sdkTracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newSpanRecorder() (*tracetest.SpanRecorder, sdkTracer) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return recorder, sdkTracer{tracer: provider.Tracer("prediction-test")}
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func TestService_Predict_Spans(t *testing.T) {
	recorder, tracer := newSpanRecorder()
	svc := stubService(t, &stubClassifier{class: 2}, WithTracer(tracer))

	_, err := svc.Predict(context.Background(), shortPayload())
	require.NoError(t, err)

	ended := recorder.Ended()
	assert.Equal(t, []string{"prediction.normalize", "prediction.encode", "prediction.classify", "prediction.predict"}, spanNames(ended))

	root := ended[len(ended)-1]
	for _, child := range ended[:len(ended)-1] {
		assert.Equal(t, root.SpanContext().SpanID(), child.Parent().SpanID())
	}
	assert.Contains(t, root.Attributes(), attribute.Int("class_id", 2))
	assert.Contains(t, root.Attributes(), attribute.String("result_type", "long"))
}

func TestService_Predict_SpanErrors(t *testing.T) {
	recorder, tracer := newSpanRecorder()
	svc := stubService(t, &stubClassifier{class: 0}, WithTracer(tracer))

	p := shortPayload()
	p["mode"] = "Turbo"
	_, err := svc.Predict(context.Background(), p)
	require.Error(t, err)

	ended := recorder.Ended()
	require.Equal(t, []string{"prediction.normalize", "prediction.encode", "prediction.predict"}, spanNames(ended))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, string(apperrors.ErrCodeUnknownCategory), ended[1].Status().Description)
	assert.Equal(t, codes.Error, ended[2].Status().Code)
}

// slowStages stalls after encoding so a short timeout expires before classification.
type slowStages struct {
	delay time.Duration
}

func (s slowStages) RecordStage(_ context.Context, stage string, _ time.Duration, _ error) {
	if stage == "encode" {
		time.Sleep(s.delay)
	}
}

func TestService_Classify_Timeout(t *testing.T) {
	svc := stubService(t, &stubClassifier{class: 1},
		WithTimeout(time.Millisecond),
		WithStageRecorder(slowStages{delay: 20 * time.Millisecond}),
	)

	result, err := svc.Predict(context.Background(), shortPayload())
	assert.Nil(t, result)
	assert.Equal(t, apperrors.ErrCodePredictionFailed, apperrors.CodeOf(err))
}

func TestService_ModelFingerprint(t *testing.T) {
	fingerprint, err := fingerprintedService(t, &stubClassifier{}, "model-v3").ModelFingerprint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "model-v3", fingerprint)

	broken := NewService(NewAssetCache(AssetLoaderFunc(func(context.Context) (*Assets, error) {
		return nil, errors.New("corrupt")
	}), logger.NewNoOpLogger()), logger.NewNoOpLogger())
	_, err = broken.ModelFingerprint(context.Background())
	assert.Equal(t, apperrors.ErrCodeModelUnavailable, apperrors.CodeOf(err))
}

func TestService_Predict_UnmappedClass(t *testing.T) {
	svc := stubService(t, &stubClassifier{class: 7})

	result, err := svc.Predict(context.Background(), shortPayload())
	require.NoError(t, err)
	assert.Equal(t, 7, result.ClassID)
	assert.Equal(t, models.ResultTypeShort, result.ResultType)
	assert.Equal(t, "Prediction: Class 7", result.Message)
}

func TestService_Predict_Failures(t *testing.T) {
	t.Run("classifier error", func(t *testing.T) {
		svc := stubService(t, &stubClassifier{err: errors.New("tensor shape mismatch")})

		_, err := svc.Predict(context.Background(), shortPayload())
		assert.Equal(t, apperrors.ErrCodePredictionFailed, apperrors.CodeOf(err))
		assert.NotContains(t, UserMessage(err), "tensor")
	})

	t.Run("cancelled context", func(t *testing.T) {
		svc := stubService(t, &stubClassifier{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Predict(ctx, shortPayload())
		assert.Equal(t, apperrors.ErrCodePredictionFailed, apperrors.CodeOf(err))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown category", func(t *testing.T) {
		svc := stubService(t, &stubClassifier{})
		p := shortPayload()
		p["battery_type"] = "NiMH"

		_, err := svc.Predict(context.Background(), p)
		assert.Equal(t, "Unknown value 'NiMH' for column 'Battery Type'", UserMessage(err))
	})

	t.Run("model unavailable", func(t *testing.T) {
		cache := NewAssetCache(AssetLoaderFunc(func(ctx context.Context) (*Assets, error) {
			return nil, errors.New("no such file")
		}), logger.NewNoOpLogger())
		svc := NewService(cache, logger.NewNoOpLogger())

		_, err := svc.Predict(context.Background(), shortPayload())
		assert.Equal(t, "Prediction model is not available", UserMessage(err))
	})
}

func TestService_ConcurrentPredict(t *testing.T) {
	svc := newFixtureService(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := shortPayload()
			want := 0
			if i%2 == 1 {
				p = longPayload()
				want = 2
			}
			result, err := svc.Predict(context.Background(), p)
			if assert.NoError(t, err) {
				assert.Equal(t, want, result.ClassID)
			}
		}(i)
	}
	wg.Wait()
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Prediction failed", UserMessage(errors.New("raw")))
	assert.Equal(t, "Invalid values provided for: soc", UserMessage(apperrors.NewInvalidFieldsError([]string{"soc"})))
}
