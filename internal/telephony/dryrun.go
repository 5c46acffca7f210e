package telephony

import (
	"context"
	"sync"

	"coc-hotline/pkg/logger"

	"github.com/google/uuid"
)

// DryRunClient is a SignalingClient that only logs what it would have asked
// the provider to do. It backs local runs without provider credentials and
// records every request for inspection.
type DryRunClient struct {
	mu       sync.Mutex
	calls    []PlaceCallRequest
	speech   []string
	messages []OutboundMessage
}

var _ SignalingClient = (*DryRunClient)(nil)

func (p *DryRunClient) Name() string { return "dry-run" }

func (p *DryRunClient) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *DryRunClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (Leg, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	leg := Leg{UUID: uuid.NewString(), Status: "started", Direction: "outbound"}
	logger.From(ctx).Info("dry-run place call", "to", req.To, "from", req.From, "answer_url", req.AnswerURL, "leg_uuid", leg.UUID)
	return leg, nil
}

func (p *DryRunClient) InjectSpeech(ctx context.Context, callID, text string) error {
	p.mu.Lock()
	p.speech = append(p.speech, callID)
	p.mu.Unlock()

	logger.From(ctx).Info("dry-run inject speech", "call_uuid", callID, "text", text)
	return nil
}

func (p *DryRunClient) SendMessage(ctx context.Context, msg OutboundMessage) error {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()

	logger.From(ctx).Info("dry-run send message", "to", msg.To, "from", msg.From)
	return nil
}

// Calls returns the recorded PlaceCall requests.
func (p *DryRunClient) Calls() []PlaceCallRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PlaceCallRequest(nil), p.calls...)
}

// Messages returns the recorded SendMessage requests.
func (p *DryRunClient) Messages() []OutboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OutboundMessage(nil), p.messages...)
}

// SpeechTargets returns the call uuids speech was injected into.
func (p *DryRunClient) SpeechTargets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.speech...)
}
