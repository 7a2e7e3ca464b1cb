package prediction

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/models"
)

// Predictor turns a raw payload into a prediction. The web form, JSON API and chatbot share one.
type Predictor interface {
	Predict(ctx context.Context, payload models.RawPayload) (*models.PredictionResult, error)
}

// RecordClassifier classifies an already normalised record.
type RecordClassifier interface {
	Classify(ctx context.Context, record models.FeatureRecord) (*models.PredictionResult, error)
}

// StageRecorder receives per-stage timings.
type StageRecorder interface {
	RecordStage(ctx context.Context, stage string, duration time.Duration, err error)
}

// Tracer starts a span per pipeline stage. observability.Observability satisfies it.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type nopStages struct{}

func (nopStages) RecordStage(context.Context, string, time.Duration, error) {}

type nopTracer struct{}

func (nopTracer) StartSpan(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, noop.Span{}
}

// Service runs normalize, encode and classify against the cached assets.
type Service struct {
	assets  *AssetCache
	logger  logger.Logger
	stages  StageRecorder
	tracer  Tracer
	timeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithStageRecorder reports stage timings to r.
func WithStageRecorder(r StageRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.stages = r
		}
	}
}

// WithTracer wraps the pipeline and each stage in spans.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithTimeout bounds one classification. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func NewService(assets *AssetCache, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		assets: assets,
		logger: log.WithFields(map[string]interface{}{"component": "prediction"}),
		stages: nopStages{},
		tracer: nopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict validates the payload and classifies it.
func (s *Service) Predict(ctx context.Context, payload models.RawPayload) (*models.PredictionResult, error) {
	ctx, span := s.tracer.StartSpan(ctx, "prediction.predict")
	defer span.End()

	var record models.FeatureRecord
	err := s.stage(ctx, "normalize", func(context.Context) error {
		var err error
		record, err = Normalize(payload)
		return err
	})
	if err != nil {
		markSpan(span, err)
		return nil, err
	}

	result, err := s.Classify(ctx, record)
	if err != nil {
		markSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("class_id", result.ClassID),
		attribute.String("result_type", string(result.ResultType)),
	)
	return result, nil
}

// Classify encodes a normalised record and maps the class id to its message.
func (s *Service) Classify(ctx context.Context, record models.FeatureRecord) (*models.PredictionResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	assets, err := s.assets.Get(ctx)
	if err != nil {
		return nil, err
	}

	var encoded EncodedRecord
	err = s.stage(ctx, "encode", func(context.Context) error {
		var err error
		encoded, err = Encode(record, assets.Encoders)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewPredictionFailedError(err)
	}

	var classID int
	err = s.stage(ctx, "classify", func(context.Context) error {
		var err error
		classID, err = assets.Classifier.Predict(encoded.Values)
		return err
	})
	if err != nil {
		s.logger.WithError(err).Error("Classifier failed", nil)
		return nil, apperrors.NewPredictionFailedError(err)
	}

	if !KnownClass(classID) {
		s.logger.Warn("Classifier returned an unmapped class", map[string]interface{}{"classId": classID})
	}
	resultType, message := DescribeClass(classID)

	return &models.PredictionResult{
		ClassID:    classID,
		ResultType: resultType,
		Message:    message,
		Inputs:     record,
	}, nil
}

// ModelFingerprint returns the identity of the loaded model, or the load error.
func (s *Service) ModelFingerprint(ctx context.Context) (string, error) {
	assets, err := s.assets.Get(ctx)
	if err != nil {
		return "", err
	}
	return assets.Fingerprint, nil
}

func (s *Service) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.StartSpan(ctx, "prediction."+name, attribute.String("stage", name))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.stages.RecordStage(ctx, name, time.Since(start), err)
	markSpan(span, err)
	return err
}

func markSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
}

// UserMessage renders a pipeline error for end users without internal details.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := apperrors.As(err); ok {
		return stdErr.Message
	}
	return "Prediction failed"
}
