// Package telegram implements the fire-and-forget relay side effect that
// accompanies avito-new-message events (spec §4.5). It never blocks or
// fails the originating webhook request (spec §9).
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const apiBase = "https://api.telegram.org/bot%s/sendMessage"

// Relay posts a message to a configured chat. It is a no-op when not
// configured, mirroring the bridge's degraded-mode pattern.
type Relay struct {
	botToken string
	chatID   string
	client   *http.Client
}

func New(botToken, chatID string) *Relay {
	return &Relay{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *Relay) configured() bool {
	return r.botToken != "" && r.chatID != ""
}

// Notify fires the HTTP call in its own goroutine so the caller's webhook
// handler returns immediately; any failure is logged, never propagated.
func (r *Relay) Notify(text string) {
	if !r.configured() {
		return
	}
	go r.send(text)
}

func (r *Relay) send(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(map[string]string{"chat_id": r.chatID, "text": text})
	if err != nil {
		logrus.WithError(err).Warn("telegram: marshal failed")
		return
	}

	url := fmt.Sprintf(apiBase, r.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logrus.WithError(err).Warn("telegram: request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		logrus.WithError(err).Warn("telegram: relay failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logrus.WithField("status", resp.StatusCode).Warn("telegram: relay returned non-success status")
	}
}
