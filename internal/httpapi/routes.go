package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register wires the provider webhooks and the health probe.
// Paths keep their trailing slash; they are configured on the provider side verbatim.
func Register(r *gin.Engine, h Handlers) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: webhook sources are not authenticated; correlation ids are the only capability.
	wh := r.Group("/webhook")
	{
		wh.GET("/answer/", h.AnswerCall)
		wh.GET("/answer_conference_call/:origin_conversation_uuid/:origin_call_uuid/", h.AnswerConferenceCall)
		wh.GET("/inbound-sms/", h.InboundSMS)
		wh.POST("/inbound-sms/", h.InboundSMS)
		wh.POST("/event/", h.CallEvent)
	}
}
