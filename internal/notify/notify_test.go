package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kinkong/internal/domain"
)

func statusChangeEvent(t *testing.T) *domain.OutboxEvent {
	t.Helper()

	ret := 5.48
	payload, err := json.Marshal(domain.StatusChangePayload{
		SignalID:     "abcdef1234567890",
		Token:        "SOL",
		Mint:         "mint123",
		FromStatus:   domain.StatusActive,
		ToStatus:     domain.StatusCompleted,
		Reason:       "target reached at 1.12",
		ActualReturn: &ret,
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	return &domain.OutboxEvent{
		EventID:   "ev-1",
		SignalID:  "abcdef1234567890",
		Kind:      domain.OutboxKindStatusChange,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTelegram_Notify(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewTelegram("bot-token", "chat-42", WithTelegramBaseURL(server.URL))

	if err := tg.Notify(context.Background(), statusChangeEvent(t)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotBody["chat_id"] != "chat-42" {
		t.Errorf("expected chat_id chat-42, got %s", gotBody["chat_id"])
	}
	text := gotBody["text"]
	for _, want := range []string{"SOL", "abcdef12", "ACTIVE -> COMPLETED", "5.48%", "target reached"} {
		if !strings.Contains(text, want) {
			t.Errorf("message %q missing %q", text, want)
		}
	}
}

func TestTelegram_SendPhoto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botbot-token/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("caption"); got != "SOL 24h" {
			t.Errorf("expected caption SOL 24h, got %s", got)
		}
		if _, _, err := r.FormFile("photo"); err != nil {
			t.Errorf("expected photo part: %v", err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tg := NewTelegram("bot-token", "chat-42", WithTelegramBaseURL(server.URL))

	if err := tg.SendPhoto(context.Background(), "SOL 24h", []byte("fake-png")); err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
}

func TestTelegram_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer server.Close()

	tg := NewTelegram("bot-token", "chat-42", WithTelegramBaseURL(server.URL))

	if err := tg.Notify(context.Background(), statusChangeEvent(t)); err == nil {
		t.Error("expected error on non-200 status")
	}
}

// recordingNotifier captures events for Multi tests.
type recordingNotifier struct {
	events []*domain.OutboxEvent
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, ev *domain.OutboxEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMulti_FansOut(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	multi := Multi{a, b}

	ev := statusChangeEvent(t)
	if err := multi.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("expected both notifiers called, got %d and %d", len(a.events), len(b.events))
	}
}

func TestMulti_ContinuesPastFailures(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("blocked")}
	ok := &recordingNotifier{}
	multi := Multi{failing, ok}

	err := multi.Notify(context.Background(), statusChangeEvent(t))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.events) != 1 {
		t.Error("later notifiers must still run after a failure")
	}
}

func TestSSEBroadcaster(t *testing.T) {
	b := NewSSEBroadcaster()

	server := httptest.NewServer(b)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect sse: %v", err)
	}
	defer resp.Body.Close()

	// Wait for the subscription to register.
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.SubscriberCount() != 1 {
		t.Fatal("expected one subscriber")
	}

	if err := b.Notify(context.Background(), statusChangeEvent(t)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read sse: %v", err)
	}
	chunk := string(buf[:n])
	if !strings.HasPrefix(chunk, "data: ") {
		t.Errorf("expected sse data frame, got %q", chunk)
	}
	if !strings.Contains(chunk, `"eventId":"ev-1"`) {
		t.Errorf("frame missing event id: %q", chunk)
	}

	cancel()
	deadline = time.Now().Add(2 * time.Second)
	for b.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.SubscriberCount() != 0 {
		t.Error("subscriber must be removed on disconnect")
	}
}
