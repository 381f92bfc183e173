package handlers

import (
	"io"
	"net/http"

	"medtransit-telemetry/internal/services"
	"medtransit-telemetry/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Provider webhook signature header.
const signatureHeader = "X-Telemetry-Signature"

// Webhook bodies are bounded so a misbehaving sender cannot exhaust
// memory.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	ingestor *services.WebhookIngestor
}

func NewWebhookHandler(ingestor *services.WebhookIngestor) *WebhookHandler {
	return &WebhookHandler{ingestor: ingestor}
}

// Receive accepts one provider telemetry event. The signature is
// computed over the raw body, so the body must be read before any JSON
// parsing happens.
func (h *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), rawBody, c.GetHeader(signatureHeader))
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to ingest event", err)
		return
	}

	switch result.Status {
	case services.IngestRejected:
		status := http.StatusBadRequest
		if result.Reason == "invalid signature" {
			status = http.StatusUnauthorized
		}
		utils.ErrorResponse(c, status, "Event rejected: "+result.Reason, nil)
	case services.IngestLogged:
		// Logged but not handled; 202 tells the provider not to retry,
		// the event log row keeps the payload for replay.
		utils.SuccessResponse(c, http.StatusAccepted, "Event logged", gin.H{"eventId": result.Event.ID.Hex()})
	default:
		utils.SuccessResponse(c, http.StatusOK, "Event processed", gin.H{"eventId": result.Event.ID.Hex()})
	}
}
