package predict

import (
	"context"
	"net/http"
	"time"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/common/validation"
	"evbot/internal/handlers"
	"evbot/internal/models"
	"evbot/internal/prediction"
	"evbot/internal/web"
)

const PageTitle = "EV Charging Duration Prediction"

type Handler struct {
	config    *Config
	predictor prediction.Predictor
	assets    AssetSource
	pages     *web.Pages
	reporter  *handlers.Reporter
	schema    *validation.Compiled
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	log := deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName})
	return &Handler{
		config:    cfg,
		predictor: deps.Predictor,
		assets:    deps.Assets,
		pages:     deps.Pages,
		reporter:  deps.Reporter,
		schema:    validation.MustCompile(GetInputSchema()),
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Routes() handlers.Group {
	return handlers.Group{
		Routes: []handlers.Route{
			{Method: "GET", Pattern: "/{$}", Handler: h.Form},
			{Method: "POST", Pattern: "/predict", Handler: h.Submit},
			{Method: "POST", Pattern: "/api/predict", Handler: h.API},
		},
	}
}

// Form renders the empty prediction form.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.FormPage{Fields: web.Fields(h.options(r.Context()), nil)})
}

// Submit runs a form prediction and re-renders the page with the outcome.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, web.FormPage{
			Fields:  web.Fields(h.options(r.Context()), nil),
			Result:  "Error: " + prediction.UserMessage(apperrors.NewInvalidRequestError(err.Error())),
			IsError: true,
		})
		return
	}

	values := web.FormValues(r)
	payload := make(models.RawPayload, len(values))
	for k, v := range values {
		payload[k] = v
	}

	result, err := h.predict(r.Context(), models.SourceWeb, payload)
	page := web.FormPage{Fields: web.Fields(h.options(r.Context()), values)}
	if err != nil {
		page.Result = "Error: " + prediction.UserMessage(err)
		page.IsError = true
	} else {
		page.Result = result.Message
	}
	h.render(w, r, page)
}

// API accepts a JSON object of the twelve input keys.
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	var payload models.RawPayload
	if err := handlers.DecodeJSON(r, h.config.MaxBodyBytes, h.schema, &payload); err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	result, err := h.predict(r.Context(), models.SourceAPI, payload)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) predict(ctx context.Context, source models.PredictionSource, payload models.RawPayload) (*models.PredictionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := h.predictor.Predict(ctx, payload)
	h.reporter.Report(ctx, source, start, result, err)
	if err != nil {
		h.logger.Info("Prediction rejected", map[string]interface{}{
			"source": string(source),
			"code":   string(apperrors.CodeOf(err)),
			"fields": apperrors.Fields(err),
		})
		return nil, err
	}
	return result, nil
}

// options lists the fitted categories per column once the assets are loaded.
func (h *Handler) options(ctx context.Context) map[string][]string {
	if h.assets == nil || h.assets.Status() != prediction.AssetStatusReady {
		return nil
	}
	assets, err := h.assets.Get(ctx)
	if err != nil {
		return nil
	}
	opts := make(map[string][]string, len(assets.Encoders))
	for col, enc := range assets.Encoders {
		opts[col] = enc.Classes
	}
	return opts
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page web.FormPage) {
	page.Title = PageTitle
	page.Ready = h.assets != nil && h.assets.Status() == prediction.AssetStatusReady
	if err := h.pages.RenderForm(w, http.StatusOK, page); err != nil {
		h.logger.WithError(err).Error("Failed to render form", map[string]interface{}{"path": r.URL.Path})
	}
}
