package handler

import (
	"log/slog"
	"net/http"

	"loom/internal/capabilities"
	"loom/internal/config"
	"loom/internal/httputil"
)

// SystemHandler serves health and model capability endpoints
type SystemHandler struct {
	config   *config.Config
	registry *capabilities.Registry
	logger   *slog.Logger
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(cfg *config.Config, registry *capabilities.Registry, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *SystemHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetModels lists the models available with the current configuration
// GET /api/models
func (h *SystemHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	type modelResponse struct {
		ID            string `json:"id"`
		DisplayName   string `json:"display_name"`
		SupportsTools bool   `json:"supports_tools"`
		ContextWindow int    `json:"context_window"`
	}

	var models []modelResponse
	if h.config.AnthropicAPIKey != "" {
		caps, err := h.registry.ListProviderModels("anthropic")
		if err != nil {
			handleError(w, err)
			return
		}
		for _, cap := range caps {
			models = append(models, modelResponse{
				ID:            cap.ID,
				DisplayName:   cap.DisplayName,
				SupportsTools: cap.SupportsTools,
				ContextWindow: cap.ContextWindow,
			})
		}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"default_model": h.config.DefaultModel,
		"models":        models,
	})
}
