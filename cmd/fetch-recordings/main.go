package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"coc-hotline/internal/auth"
	"coc-hotline/internal/config"
	"coc-hotline/internal/telephony"

	"github.com/joho/godotenv"
)

// fetch-recordings downloads conversation recordings reported to the
// recording callback:
//
//	fetch-recordings [-out dir] url1 url2 ...
func main() {
	exitFn(run(os.Args, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

type recordingFetcher interface {
	FetchRecording(ctx context.Context, recordingURL string) ([]byte, error)
}

var newFetcher = func() (recordingFetcher, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	creds, err := config.LoadVoiceCredentials()
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewManager(creds)
	if err != nil {
		return nil, err
	}
	return &telephony.VonageClient{Tokens: tokens, VoiceBaseURL: creds.VoiceBaseURL}, nil
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("fetch-recordings", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("out", "./recordings", "directory to write recordings to")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: fetch-recordings [-out dir] url...")
		return 2
	}

	fetcher, err := newFetcher()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := os.MkdirAll(*outDir, 0o700); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx := context.Background()
	failed := 0
	for _, raw := range fs.Args() {
		name, err := recordingName(raw)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", raw, err)
			failed++
			continue
		}
		b, err := fetcher.FetchRecording(ctx, raw)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", raw, err)
			failed++
			continue
		}
		dest := filepath.Join(*outDir, name+".mp3")
		if err := os.WriteFile(dest, b, 0o600); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", raw, err)
			failed++
			continue
		}
		fmt.Fprintln(stdout, dest)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// recordingName is the last path segment of the recording URL, which the
// provider sets to the recording uuid.
func recordingName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.New("not an http(s) url")
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "" || name == "." || name == "/" {
		return "", errors.New("url has no recording id")
	}
	return name, nil
}
