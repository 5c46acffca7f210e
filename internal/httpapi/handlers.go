package httpapi

import (
	"context"
	"errors"
	"net/http"

	"coc-hotline/internal/hotline"
	"coc-hotline/internal/telephony"
	"coc-hotline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HotlineService is what the webhook handlers delegate to.
type HotlineService interface {
	HandleIncomingCall(ctx context.Context, conversationUUID, callUUID string) (telephony.Sequence, error)
	HandleLegAnswered(ctx context.Context, originConversationUUID, originCallUUID, calleeNumber string) (telephony.Sequence, error)
	HandleInboundSMS(ctx context.Context, reporterNumber, hotlineNumber, text string) error
}

// Handlers groups the provider webhooks for dependency injection.
// Keep these thin: parse/validate input, call the hotline service, write the response.
type Handlers struct {
	Hotline HotlineService
}

// AnswerCall is the answer webhook for calls to the hotline number.
func (h Handlers) AnswerCall(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	ncco, err := h.Hotline.HandleIncomingCall(c.Request.Context(), c.Query("conversation_uuid"), c.Query("uuid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeNCCO(c, ncco)
}

// AnswerConferenceCall is the answer webhook of each staff dial-out. The
// origin identifiers come from the path we put in the leg's answer URL.
func (h Handlers) AnswerConferenceCall(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	ncco, err := h.Hotline.HandleLegAnswered(
		c.Request.Context(),
		c.Param("origin_conversation_uuid"),
		c.Param("origin_call_uuid"),
		c.Query("to"),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeNCCO(c, ncco)
}

// inboundSMS accepts the provider's query-string (GET), form (POST) and JSON (POST) variants.
type inboundSMS struct {
	Msisdn string `form:"msisdn" json:"msisdn"`
	To     string `form:"to" json:"to"`
	Text   string `form:"text" json:"text"`
}

// InboundSMS relays a text to the staff roster and answers 204.
func (h Handlers) InboundSMS(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req inboundSMS
	if err := c.ShouldBind(&req); err != nil {
		logger.FromGin(c).Warn("inbound sms parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid sms payload"})
		return
	}
	if err := h.Hotline.HandleInboundSMS(c.Request.Context(), req.Msisdn, req.To, req.Text); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// callEvent is the subset of a voice event we log.
type callEvent struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	Status           string `json:"status"`
	Direction        string `json:"direction"`
	Timestamp        string `json:"timestamp"`
	Duration         string `json:"duration,omitempty"`
	RecordingURL     string `json:"recording_url,omitempty"`
}

// CallEvent receives call status events for the voice application. They
// are logged only; nothing is persisted.
func (h Handlers) CallEvent(c *gin.Context) {
	var ev callEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		logger.FromGin(c).Warn("call event parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	attrs := []any{
		"call_uuid", ev.UUID,
		"conversation_uuid", ev.ConversationUUID,
		"status", ev.Status,
		"direction", ev.Direction,
	}
	if ev.Duration != "" {
		attrs = append(attrs, "duration", ev.Duration)
	}
	if ev.RecordingURL != "" {
		attrs = append(attrs, "recording_url", ev.RecordingURL)
	}
	logger.FromGin(c).Info("call event", attrs...)
	c.Status(http.StatusNoContent)
}

func (h Handlers) configured(c *gin.Context) bool {
	if h.Hotline == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "hotline not configured"})
		return false
	}
	return true
}

func writeNCCO(c *gin.Context, ncco telephony.Sequence) {
	body, err := telephony.RenderNCCO(ncco)
	if err != nil {
		logger.FromGin(c).Error("ncco render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ncco failed"})
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func abortWithError(c *gin.Context, err error) {
	var input *hotline.ClientInputError
	if errors.As(err, &input) {
		logger.FromGin(c).Warn("webhook rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": input.Error()})
		return
	}
	logger.FromGin(c).Error("webhook failed", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
