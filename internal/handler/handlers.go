// Package handler wires the prediction service onto a gin router.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"clinsight/internal/history"
	"clinsight/internal/models"
	"clinsight/internal/predictor"
)

const defaultImportanceLimit = 10

// Handler serves every API endpoint from the immutable model bundle and
// the injected history store.
type Handler struct {
	predictor *predictor.Predictor
	report    *models.ModelMetrics
	history   history.Store
	log       zerolog.Logger
}

func New(p *predictor.Predictor, report *models.ModelMetrics, store history.Store, log zerolog.Logger) *Handler {
	return &Handler{predictor: p, report: report, history: store, log: log}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"best_model":   h.predictor.ModelName(),
		"num_diseases": len(h.predictor.Diseases()),
		"num_symptoms": len(h.predictor.Symptoms()),
	})
}

func (h *Handler) Metadata(c *gin.Context) {
	c.JSON(http.StatusOK, models.Metadata{
		Symptoms: h.predictor.Symptoms(),
		Diseases: h.predictor.Diseases(),
	})
}

func (h *Handler) Predict(c *gin.Context) {
	var input models.CaseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, models.APIError{Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.predictor.Predict(input)
	if err != nil {
		if predictor.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, models.APIError{Message: err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("prediction failed")
		c.JSON(http.StatusInternalServerError, models.APIError{Message: "prediction failed"})
		return
	}

	entry := history.Entry{CreatedAt: time.Now().UTC(), Input: input, Result: *result}
	if err := h.history.Add(c.Request.Context(), entry); err != nil {
		// History is best effort; the prediction itself succeeded.
		h.log.Warn().Err(err).Msg("recording prediction history failed")
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Metrics(c *gin.Context) {
	if h.report == nil {
		c.JSON(http.StatusInternalServerError, models.APIError{Message: "model metrics report not available; train a model first"})
		return
	}
	c.JSON(http.StatusOK, h.report)
}

func (h *Handler) Importance(c *gin.Context) {
	limit := defaultImportanceLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.APIError{Message: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"importance": h.predictor.Importance(limit)})
}

func (h *Handler) ModelInfo(c *gin.Context) {
	metrics := h.predictor.BundleMetrics()
	if len(metrics) == 0 && h.report != nil {
		metrics = h.report.Results
	}
	c.JSON(http.StatusOK, models.ModelInfo{
		BestModel:         h.predictor.ModelName(),
		Metrics:           metrics,
		TopGlobalSymptoms: h.predictor.Importance(defaultImportanceLimit),
	})
}

func (h *Handler) SamplePayload(c *gin.Context) {
	c.JSON(http.StatusOK, models.CaseInput{
		Age:          28,
		Gender:       "female",
		Symptoms:     []string{"fever", "cough", "headache"},
		DurationDays: 2,
		Lifestyle:    models.Lifestyle{Smoking: false, Alcohol: false},
	})
}

func (h *Handler) History(c *gin.Context) {
	entries, err := h.history.Recent(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("reading prediction history failed")
		c.JSON(http.StatusInternalServerError, models.APIError{Message: "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
