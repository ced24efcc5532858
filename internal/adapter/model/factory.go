package model

import (
	"log/slog"
	"time"
)

// Modes selecting the client implementation.
const (
	ModeLive     = "live"
	ModeScripted = "scripted"
)

// NewFromMode returns a scripted client when mode is "scripted", otherwise
// an HTTP client for the configured backend.
func NewFromMode(mode, baseURL, apiKey string, timeout time.Duration, log *slog.Logger) Client {
	if mode == ModeScripted {
		log.Info("using scripted model client")
		return NewScriptedClient(nil)
	}
	return NewHTTPClient(baseURL, apiKey, timeout)
}
