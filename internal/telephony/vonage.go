package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultVoiceBaseURL = "https://api.nexmo.com"
	defaultRestBaseURL  = "https://rest.nexmo.com"
	defaultHTTPTimeout  = 10 * time.Second

	// maxRecordingBytes bounds a single recording download.
	maxRecordingBytes = 256 << 20
)

// TokenSource mints application JWTs for the voice API.
type TokenSource interface {
	Issue(now time.Time) (string, error)
}

// VonageClient talks to the Vonage (Nexmo) Voice and SMS REST APIs.
//
// Voice requests are authorised with an application JWT; SMS requests
// carry the account api_key/api_secret pair.
type VonageClient struct {
	Tokens    TokenSource
	APIKey    string
	APISecret string

	VoiceBaseURL string
	RestBaseURL  string
	HTTP         *http.Client

	Now func() time.Time
}

var _ SignalingClient = (*VonageClient)(nil)

func (c *VonageClient) Name() string { return "vonage" }

// HealthCheck verifies credentials are usable without calling the provider.
func (c *VonageClient) HealthCheck(ctx context.Context) error {
	if c.Tokens == nil {
		return errors.New("telephony: vonage token source not configured")
	}
	if _, err := c.Tokens.Issue(c.now()); err != nil {
		return fmt.Errorf("telephony: vonage token: %w", err)
	}
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("telephony: vonage api key/secret not configured")
	}
	return ctx.Err()
}

type vonageEndpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type createCallRequest struct {
	To           []vonageEndpoint `json:"to"`
	From         vonageEndpoint   `json:"from"`
	AnswerURL    []string         `json:"answer_url"`
	AnswerMethod string           `json:"answer_method"`
}

func (c *VonageClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (Leg, error) {
	fail := func(status int, err error) (Leg, error) {
		return Leg{}, &ProviderError{Op: OpPlaceCall, Target: req.To, StatusCode: status, Err: err}
	}
	if req.To == "" || req.From == "" || req.AnswerURL == "" {
		return fail(0, errors.New("to, from and answer_url are required"))
	}

	body := createCallRequest{
		To:           []vonageEndpoint{{Type: "phone", Number: req.To}},
		From:         vonageEndpoint{Type: "phone", Number: req.From},
		AnswerURL:    []string{req.AnswerURL},
		AnswerMethod: http.MethodGet,
	}

	var leg Leg
	status, err := c.voiceJSON(ctx, http.MethodPost, "/v1/calls", body, &leg)
	if err != nil {
		return fail(status, err)
	}
	if leg.UUID == "" {
		return fail(status, errors.New("missing call uuid in response"))
	}
	return leg, nil
}

func (c *VonageClient) InjectSpeech(ctx context.Context, callID, text string) error {
	if callID == "" {
		return &ProviderError{Op: OpInjectSpeech, Err: errors.New("call id is required")}
	}
	path := "/v1/calls/" + url.PathEscape(callID) + "/talk"
	status, err := c.voiceJSON(ctx, http.MethodPut, path, map[string]string{"text": text}, nil)
	if err != nil {
		return &ProviderError{Op: OpInjectSpeech, Target: callID, StatusCode: status, Err: err}
	}
	return nil
}

type smsResponse struct {
	MessageCount string `json:"message-count"`
	Messages     []struct {
		Status    string `json:"status"`
		MessageID string `json:"message-id"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func (c *VonageClient) SendMessage(ctx context.Context, msg OutboundMessage) error {
	fail := func(status int, err error) error {
		return &ProviderError{Op: OpSendMessage, Target: msg.To, StatusCode: status, Err: err}
	}
	if msg.To == "" || msg.From == "" {
		return fail(0, errors.New("from and to are required"))
	}
	if c.APIKey == "" || c.APISecret == "" {
		return fail(0, errors.New("api key/secret not configured"))
	}

	form := url.Values{}
	form.Set("api_key", c.APIKey)
	form.Set("api_secret", c.APISecret)
	form.Set("from", msg.From)
	form.Set("to", msg.To)
	form.Set("text", msg.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseOr(c.RestBaseURL, defaultRestBaseURL)+"/sms/json", strings.NewReader(form.Encode()))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fail(res.StatusCode, errors.New(readErrorBody(res.Body)))
	}

	var out smsResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fail(res.StatusCode, fmt.Errorf("decode sms response: %w", err))
	}
	if len(out.Messages) == 0 {
		return fail(res.StatusCode, errors.New("empty sms response"))
	}
	// A long text is split into parts; any rejected part fails the send.
	for _, m := range out.Messages {
		if m.Status != "0" {
			text := m.ErrorText
			if text == "" {
				text = "sms rejected"
			}
			return fail(res.StatusCode, fmt.Errorf("status %s: %s", m.Status, text))
		}
	}
	return nil
}

// FetchRecording downloads a conversation recording. recordingURL is the
// absolute URL the provider reported in the recording event.
func (c *VonageClient) FetchRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	fail := func(status int, err error) ([]byte, error) {
		return nil, &ProviderError{Op: OpFetchRecording, Target: recordingURL, StatusCode: status, Err: err}
	}

	req, err := c.newVoiceRequest(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return fail(0, err)
	}
	res, err := c.httpClient().Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fail(res.StatusCode, errors.New(readErrorBody(res.Body)))
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, maxRecordingBytes))
	if err != nil {
		return fail(res.StatusCode, err)
	}
	return b, nil
}

// voiceJSON sends a JSON request to the voice API and decodes a JSON reply
// into out when out is non-nil. It returns the HTTP status when one was received.
func (c *VonageClient) voiceJSON(ctx context.Context, method, path string, in, out any) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}
	req, err := c.newVoiceRequest(ctx, method, baseOr(c.VoiceBaseURL, defaultVoiceBaseURL)+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient().Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return res.StatusCode, errors.New(readErrorBody(res.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return res.StatusCode, nil
}

func (c *VonageClient) newVoiceRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	if c.Tokens == nil {
		return nil, errors.New("token source not configured")
	}
	tok, err := c.Tokens.Issue(c.now())
	if err != nil {
		return nil, fmt.Errorf("issue application token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *VonageClient) httpClient() *http.Client {
	if c.HTTP == nil {
		return &http.Client{Timeout: defaultHTTPTimeout}
	}
	return c.HTTP
}

func (c *VonageClient) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func baseOr(base, def string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return def
	}
	return base
}

// readErrorBody extracts the provider's error title when the body is a
// problem+json document, falling back to the raw (truncated) body.
func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var problem struct {
		Title     string `json:"title"`
		Detail    string `json:"detail"`
		ErrorText string `json:"error_title"`
	}
	if json.Unmarshal(b, &problem) == nil {
		switch {
		case problem.Title != "" && problem.Detail != "":
			return problem.Title + ": " + problem.Detail
		case problem.Title != "":
			return problem.Title
		case problem.ErrorText != "":
			return problem.ErrorText
		}
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "empty response"
	}
	return s
}
