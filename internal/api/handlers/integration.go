package handlers

import (
	"net/http"
	"time"

	"medtransit-telemetry/internal/models"
	"medtransit-telemetry/internal/services"
	"medtransit-telemetry/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type IntegrationHandler struct {
	configs   *services.ConfigStore
	tokens    *services.TokenManager
	sync      *services.SyncEngine
	validator *validator.Validate
}

func NewIntegrationHandler(configs *services.ConfigStore, tokens *services.TokenManager, sync *services.SyncEngine) *IntegrationHandler {
	return &IntegrationHandler{
		configs:   configs,
		tokens:    tokens,
		sync:      sync,
		validator: validator.New(),
	}
}

// IntegrationStatus is the credential-free view of the integration
// config served to the dashboard.
type IntegrationStatus struct {
	Configured      bool                `json:"configured"`
	Enabled         bool                `json:"enabled"`
	Features        models.FeatureFlags `json:"features"`
	GeofenceRadiusM float64             `json:"geofenceRadiusM"`
	SyncStatus      string              `json:"syncStatus,omitempty"`
	SyncError       string              `json:"syncError,omitempty"`
	LastSyncAt      *time.Time          `json:"lastSyncAt,omitempty"`
	WebhookSecured  bool                `json:"webhookSecured"`
}

// GetStatus returns the integration state without credentials
func (h *IntegrationHandler) GetStatus(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load integration config", err)
		return
	}

	status := IntegrationStatus{}
	if cfg != nil {
		status = IntegrationStatus{
			Configured:      true,
			Enabled:         cfg.Enabled,
			Features:        cfg.Features,
			GeofenceRadiusM: cfg.GeofenceRadiusM,
			SyncStatus:      cfg.SyncStatus,
			SyncError:       cfg.SyncError,
			LastSyncAt:      cfg.LastSyncAt,
			WebhookSecured:  cfg.WebhookSecret != "",
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Integration status retrieved", status)
}

// Connect exchanges provider credentials and enables the integration
func (h *IntegrationHandler) Connect(c *gin.Context) {
	var creds services.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&creds); err != nil {
		utils.ValidationErrorResponse(c, err)
		return
	}

	if err := h.tokens.TestConnection(c.Request.Context(), creds); err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Provider connection failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Provider connected successfully", nil)
}

// SyncDevices triggers a full device roster sync
func (h *IntegrationHandler) SyncDevices(c *gin.Context) {
	result, err := h.sync.SyncDevices(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Device sync failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device sync completed", result)
}

type updateSettingsRequest struct {
	Enabled         *bool                `json:"enabled,omitempty"`
	Features        *models.FeatureFlags `json:"features,omitempty"`
	GeofenceRadiusM *float64             `json:"geofenceRadiusM,omitempty"`
	WebhookSecret   *string              `json:"webhookSecret,omitempty"`
}

// UpdateSettings changes feature flags and tuning without touching
// provider credentials
func (h *IntegrationHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load integration config", err)
		return
	}
	if cfg == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Integration is not configured", nil)
		return
	}

	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.Features != nil {
		cfg.Features = *req.Features
	}
	if req.GeofenceRadiusM != nil && *req.GeofenceRadiusM > 0 {
		cfg.GeofenceRadiusM = *req.GeofenceRadiusM
	}
	if req.WebhookSecret != nil {
		cfg.WebhookSecret = *req.WebhookSecret
	}

	if _, err := h.configs.Save(c.Request.Context(), cfg); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Settings updated", nil)
}

// Disable turns the integration off while keeping credentials on file
func (h *IntegrationHandler) Disable(c *gin.Context) {
	cfg, err := h.configs.Get(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load integration config", err)
		return
	}
	if cfg == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Integration is not configured", nil)
		return
	}

	cfg.Enabled = false
	if _, err := h.configs.Save(c.Request.Context(), cfg); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to disable integration", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Integration disabled", nil)
}
