package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticTokens struct {
	tok string
	err error
}

func (s staticTokens) Issue(time.Time) (string, error) { return s.tok, s.err }

func newTestClient(srv *httptest.Server) *VonageClient {
	return &VonageClient{
		Tokens:       staticTokens{tok: "jwt-test"},
		APIKey:       "key",
		APISecret:    "secret",
		VoiceBaseURL: srv.URL,
		RestBaseURL:  srv.URL,
		HTTP:         srv.Client(),
	}
}

func TestPlaceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/calls" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-test" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		var body createCallRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.To) != 1 || body.To[0].Number != "16040001234" || body.To[0].Type != "phone" {
			t.Fatalf("unexpected to: %+v", body.To)
		}
		if body.From.Number != "5678" {
			t.Fatalf("unexpected from: %+v", body.From)
		}
		if len(body.AnswerURL) != 1 || body.AnswerURL[0] != "https://h.example.com/answer" {
			t.Fatalf("unexpected answer_url: %v", body.AnswerURL)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"uuid":"leg-1","status":"started","direction":"outbound","conversation_uuid":"CON-x"}`))
	}))
	defer srv.Close()

	leg, err := newTestClient(srv).PlaceCall(context.Background(), PlaceCallRequest{
		To: "16040001234", From: "5678", AnswerURL: "https://h.example.com/answer",
	})
	if err != nil {
		t.Fatalf("place call: %v", err)
	}
	if leg.UUID != "leg-1" || leg.Status != "started" {
		t.Fatalf("unexpected leg: %+v", leg)
	}
}

func TestPlaceCallProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized","detail":"bad token"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).PlaceCall(context.Background(), PlaceCallRequest{To: "1", From: "2", AnswerURL: "https://x"})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Op != OpPlaceCall || perr.Target != "1" || perr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected provider error: %+v", perr)
	}
	if perr.Err.Error() != "Unauthorized: bad token" {
		t.Fatalf("unexpected message: %v", perr.Err)
	}
}

func TestPlaceCallTokenFailure(t *testing.T) {
	c := &VonageClient{Tokens: staticTokens{err: errors.New("no key")}, VoiceBaseURL: "http://127.0.0.1:1"}
	_, err := c.PlaceCall(context.Background(), PlaceCallRequest{To: "1", From: "2", AnswerURL: "https://x"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != 0 {
		t.Fatalf("expected ProviderError without status, got %v", err)
	}
}

func TestInjectSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/v1/calls/call-1/talk" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"text":"Mariatta is joining this call."}` {
			t.Fatalf("unexpected body: %s", body)
		}
		_, _ = w.Write([]byte(`{"message":"Talk started","uuid":"call-1"}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv).InjectSpeech(context.Background(), "call-1", "Mariatta is joining this call."); err != nil {
		t.Fatalf("inject speech: %v", err)
	}
}

func TestInjectSpeechCallGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv).InjectSpeech(context.Background(), "call-1", "x")
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Op != OpInjectSpeech || perr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected inject_speech 404, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sms/json" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("api_key") != "key" || r.PostForm.Get("api_secret") != "secret" {
			t.Fatalf("missing credentials: %v", r.PostForm)
		}
		if r.PostForm.Get("from") != "5678" || r.PostForm.Get("to") != "1234" || r.PostForm.Get("text") != "hi" {
			t.Fatalf("unexpected form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"message-count":"1","messages":[{"status":"0","message-id":"m1"}]}`))
	}))
	defer srv.Close()

	if err := newTestClient(srv).SendMessage(context.Background(), OutboundMessage{From: "5678", To: "1234", Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSendMessageRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message-count":"1","messages":[{"status":"4","error-text":"Bad Credentials"}]}`))
	}))
	defer srv.Close()

	err := newTestClient(srv).SendMessage(context.Background(), OutboundMessage{From: "5678", To: "1234", Text: "hi"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Op != OpSendMessage || perr.Target != "1234" {
		t.Fatalf("expected send_message error, got %v", err)
	}
	if perr.Err.Error() != "status 4: Bad Credentials" {
		t.Fatalf("unexpected message: %v", perr.Err)
	}
}

func TestFetchRecording(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-test" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		_, _ = w.Write([]byte("ID3-audio"))
	}))
	defer srv.Close()

	b, err := newTestClient(srv).FetchRecording(context.Background(), srv.URL+"/v1/files/rec-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(b) != "ID3-audio" {
		t.Fatalf("unexpected body: %q", b)
	}
}

func TestHealthCheck(t *testing.T) {
	c := &VonageClient{Tokens: staticTokens{tok: "x"}, APIKey: "k", APISecret: "s"}
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
	c.APISecret = ""
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
