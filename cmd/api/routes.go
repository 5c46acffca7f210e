package main

import (
	"context"
	"log/slog"

	"coc-hotline/internal/auth"
	"coc-hotline/internal/config"
	"coc-hotline/internal/directory"
	"coc-hotline/internal/hotline"
	"coc-hotline/internal/httpapi"
	"coc-hotline/internal/recording"
	"coc-hotline/internal/telephony"
)

// buildHandlers wires the webhook handlers from configuration.
// Keep this file free of business logic; it only assembles components.
func buildHandlers(cfg config.Config, log *slog.Logger) (httpapi.Handlers, error) {
	contacts := make([]directory.StaffContact, 0, len(cfg.Hotline.Roster))
	for _, e := range cfg.Hotline.Roster {
		contacts = append(contacts, directory.StaffContact{Name: e.Name, PhoneNumber: e.Phone})
	}
	dir, err := directory.New(contacts)
	if err != nil {
		return httpapi.Handlers{}, err
	}

	client, err := newSignalingClient(cfg.Nexmo)
	if err != nil {
		return httpapi.Handlers{}, err
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		return httpapi.Handlers{}, err
	}
	log.Info("signaling client ready", "provider", client.Name())

	policy := recording.NewPolicy(cfg.Recording.Enabled, cfg.Recording.CallbackURL, cfg.Recording.HoldMusic, nil)

	svc, err := hotline.NewService(dir, client, policy, hotline.Options{
		HotlineNumber: cfg.Nexmo.HotlineNumber,
		Description:   cfg.Hotline.Description,
		BaseURL:       cfg.Hotline.BaseURL,
	})
	if err != nil {
		return httpapi.Handlers{}, err
	}
	return httpapi.Handlers{Hotline: svc}, nil
}

func newSignalingClient(cfg config.NexmoConfig) (telephony.SignalingClient, error) {
	if cfg.DryRun {
		return &telephony.DryRunClient{}, nil
	}
	tokens, err := auth.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &telephony.VonageClient{
		Tokens:       tokens,
		APIKey:       cfg.APIKey,
		APISecret:    cfg.APISecret,
		VoiceBaseURL: cfg.VoiceBaseURL,
		RestBaseURL:  cfg.RestBaseURL,
	}, nil
}
