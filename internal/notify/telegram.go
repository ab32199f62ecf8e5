package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"kinkong/internal/domain"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts events to a chat through the Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// TelegramOption configures Telegram.
type TelegramOption func(*Telegram)

// WithTelegramBaseURL overrides the Bot API base URL.
func WithTelegramBaseURL(u string) TelegramOption {
	return func(t *Telegram) {
		t.baseURL = u
	}
}

// WithTelegramHTTPClient sets a custom http.Client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) {
		t.client = client
	}
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		baseURL: defaultTelegramBaseURL,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Compile-time interface check.
var _ Notifier = (*Telegram)(nil)

// Notify renders the event as text and sends it to the chat.
func (t *Telegram) Notify(ctx context.Context, ev *domain.OutboxEvent) error {
	text := formatEvent(ev)
	return t.SendMessage(ctx, text)
}

// SendMessage posts a plain text message to the chat.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

// SendPhoto posts a PNG with a caption to the chat.
func (t *Telegram) SendPhoto(ctx context.Context, caption string, png []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption: %w", err)
	}
	part, err := writer.CreateFormFile("photo", "chart.png")
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return t.do(req)
}

func (t *Telegram) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// formatEvent renders an outbox event as a chat message.
func formatEvent(ev *domain.OutboxEvent) string {
	if ev.Kind == domain.OutboxKindStatusChange {
		var p domain.StatusChangePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			text := fmt.Sprintf("%s signal %s: %s -> %s", p.Token, shortID(p.SignalID), p.FromStatus, p.ToStatus)
			if p.ActualReturn != nil {
				text += fmt.Sprintf(" (%.2f%%)", *p.ActualReturn)
			}
			if p.Reason != "" {
				text += "\n" + p.Reason
			}
			return text
		}
	}
	return fmt.Sprintf("%s event for signal %s", ev.Kind, shortID(ev.SignalID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
