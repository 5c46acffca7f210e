package telephony

import (
	"context"
	"fmt"
)

// SignalingClient is the capability set the hotline needs from the
// telephony provider.
//
// Rules:
//   - No provider HTTP calls outside telephony adapters.
//   - Calls are fire-and-forget: they return once the provider has accepted
//     the request, never after the far end acts on it.
//   - Every failure is a *ProviderError.
type SignalingClient interface {
	Name() string
	HealthCheck(ctx context.Context) error

	PlaceCall(ctx context.Context, req PlaceCallRequest) (Leg, error)
	InjectSpeech(ctx context.Context, callID, text string) error
	SendMessage(ctx context.Context, msg OutboundMessage) error
}

// PlaceCallRequest dials one outbound leg. The provider fetches the leg's
// NCCO from AnswerURL once the callee picks up.
type PlaceCallRequest struct {
	To        string `json:"to"`
	From      string `json:"from"`
	AnswerURL string `json:"answer_url"`
}

// Leg is the provider's handle for a dialed call leg.
type Leg struct {
	UUID             string `json:"uuid"`
	ConversationUUID string `json:"conversation_uuid"`
	Status           string `json:"status"`
	Direction        string `json:"direction"`
}

// OutboundMessage is an SMS to send. Never stored.
type OutboundMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// ProviderError reports a failed outbound provider request.
type ProviderError struct {
	// Op is the capability that failed: place_call, inject_speech, send_message, fetch_recording.
	Op string
	// Target is the number, call uuid or URL the request was about.
	Target string
	// StatusCode is the HTTP status, 0 when the request never got a response.
	StatusCode int
	Err        error
}

const (
	OpPlaceCall      = "place_call"
	OpInjectSpeech   = "inject_speech"
	OpSendMessage    = "send_message"
	OpFetchRecording = "fetch_recording"
)

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("telephony: %s %s: status %d: %v", e.Op, e.Target, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("telephony: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
