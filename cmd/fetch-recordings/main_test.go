package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeFetcher struct {
	body map[string][]byte
}

func (f fakeFetcher) FetchRecording(_ context.Context, u string) ([]byte, error) {
	b, ok := f.body[u]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func withFetcher(t *testing.T, f recordingFetcher, err error) {
	t.Helper()
	prev := newFetcher
	newFetcher = func() (recordingFetcher, error) { return f, err }
	t.Cleanup(func() { newFetcher = prev })
}

func TestRunWritesRecordings(t *testing.T) {
	dir := t.TempDir()
	withFetcher(t, fakeFetcher{body: map[string][]byte{
		"https://api.nexmo.com/v1/files/rec-1": []byte("one"),
		"https://api.nexmo.com/v1/files/rec-2": []byte("two"),
	}}, nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"fetch-recordings", "-out", dir,
		"https://api.nexmo.com/v1/files/rec-1",
		"https://api.nexmo.com/v1/files/rec-2",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}

	b, err := os.ReadFile(filepath.Join(dir, "rec-2.mp3"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("unexpected content %q", b)
	}
	if !strings.Contains(stdout.String(), "rec-1.mp3") {
		t.Fatalf("expected written paths on stdout: %s", stdout.String())
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	withFetcher(t, fakeFetcher{body: map[string][]byte{
		"https://api.nexmo.com/v1/files/ok": []byte("ok"),
	}}, nil)

	var stdout, stderr bytes.Buffer
	code := run([]string{"fetch-recordings", "-out", dir,
		"https://api.nexmo.com/v1/files/missing",
		"https://api.nexmo.com/v1/files/ok",
	}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.mp3")); err != nil {
		t.Fatalf("expected ok.mp3 written: %v", err)
	}
	if !strings.Contains(stderr.String(), "missing") {
		t.Fatalf("expected failure reported: %s", stderr.String())
	}
}

func TestRunUsageAndCredentials(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"fetch-recordings"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}

	withFetcher(t, nil, errors.New("NEXMO_APP_ID is required"))
	stderr.Reset()
	if code := run([]string{"fetch-recordings", "https://x.example.com/a"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "NEXMO_APP_ID") {
		t.Fatalf("expected credential error: %s", stderr.String())
	}
}

func TestRecordingName(t *testing.T) {
	cases := map[string]string{
		"https://api.nexmo.com/v1/files/abc-123":  "abc-123",
		"https://api.nexmo.com/v1/files/abc-123/": "abc-123",
	}
	for in, want := range cases {
		got, err := recordingName(in)
		if err != nil || got != want {
			t.Fatalf("%s: expected %q, got %q (%v)", in, want, got, err)
		}
	}
	for _, bad := range []string{"ftp://x/y", "https://api.nexmo.com/", "not a url"} {
		if _, err := recordingName(bad); err == nil {
			t.Fatalf("%s: expected error", bad)
		}
	}
}
