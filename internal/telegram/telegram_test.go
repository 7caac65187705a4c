package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

// captureServer fakes the Bot API sendMessage endpoint and records
// every request body it receives.
func captureServer(t *testing.T, respond func(w http.ResponseWriter)) (*Notifier, *[]sendMessageRequest) {
	t.Helper()
	var got []sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		got = append(got, req)
		respond(w)
	}))
	t.Cleanup(srv.Close)

	n := NewNotifier("test-token", "42")
	n.apiBase = srv.URL
	return n, &got
}

func okResponse(w http.ResponseWriter) {
	fmt.Fprint(w, `{"ok":true}`)
}

func TestSend(t *testing.T) {
	n, got := captureServer(t, okResponse)

	if err := n.Send("hello"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("server received %d requests, want 1", len(*got))
	}
	req := (*got)[0]
	if req.ChatID != "42" {
		t.Errorf("chat_id = %s, want 42", req.ChatID)
	}
	if req.Text != "hello" {
		t.Errorf("text = %q, want hello", req.Text)
	}
	if req.ParseMode != "Markdown" {
		t.Errorf("parse_mode = %s, want Markdown", req.ParseMode)
	}
}

func TestSendAPIError(t *testing.T) {
	n, _ := captureServer(t, func(w http.ResponseWriter) {
		fmt.Fprint(w, `{"ok":false,"description":"chat not found"}`)
	})

	err := n.Send("hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Send() = %v, want api error mentioning chat not found", err)
	}
}

func TestSendHTTPError(t *testing.T) {
	n, _ := captureServer(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if err := n.Send("hello"); err == nil {
		t.Error("Send() with 502 response expected error")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvToken, "abc")
	t.Setenv(EnvChatID, "42")
	n, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv() error: %v", err)
	}
	if n.token != "abc" || n.chatID != "42" {
		t.Errorf("NewFromEnv() = %s/%s, want abc/42", n.token, n.chatID)
	}

	t.Setenv(EnvToken, "")
	if _, err := NewFromEnv(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("NewFromEnv() without token = %v, want ErrNoCredentials", err)
	}
}

func TestNotifyMatch(t *testing.T) {
	n, got := captureServer(t, okResponse)

	m := &types.Match{
		Puzzle:        14,
		PrivateKeyHex: "0000000000000000000000000000000000000000000000000000000000002930",
		Address:       "1ErZWg5cFCe4Vw5BzgfzB74VNLaXEiEkhk",
		Encoding:      "compressed",
		FoundAt:       time.Now(),
		Persisted:     true,
	}
	p := &types.Puzzle{Number: 14, Bits: 14, RewardBTC: 6.6}

	if err := n.NotifyMatch(m, p); err != nil {
		t.Fatalf("NotifyMatch() error: %v", err)
	}
	text := (*got)[0].Text
	for _, fragment := range []string{"SOLVED", "#14", m.PrivateKeyHex, m.Address, "6.60000000 BTC"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("message missing %q:\n%s", fragment, text)
		}
	}
	if strings.Contains(text, "NOT PERSISTED") {
		t.Error("persisted match should not carry the unpersisted warning")
	}
}

func TestNotifyMatchUnpersisted(t *testing.T) {
	n, got := captureServer(t, okResponse)

	m := &types.Match{
		Puzzle:        14,
		PrivateKeyHex: "2930",
		Address:       "1ErZWg5cFCe4Vw5BzgfzB74VNLaXEiEkhk",
		Encoding:      "compressed",
		FoundAt:       time.Now(),
	}

	if err := n.NotifyMatch(m, nil); err != nil {
		t.Fatalf("NotifyMatch() error: %v", err)
	}
	if !strings.Contains((*got)[0].Text, "NOT PERSISTED") {
		t.Errorf("unpersisted match missing warning:\n%s", (*got)[0].Text)
	}
}

func TestNotifyStats(t *testing.T) {
	n, got := captureServer(t, okResponse)

	snap := types.Snapshot{
		Trials:        1234567,
		Sessions:      12,
		Matches:       1,
		CurrentPuzzle: 71,
		StartedAt:     time.Now().Add(-time.Hour),
	}
	if err := n.NotifyStats(snap); err != nil {
		t.Fatalf("NotifyStats() error: %v", err)
	}
	text := (*got)[0].Text
	for _, fragment := range []string{"1,234,567", "Sessions completed: 12", "#71"} {
		if !strings.Contains(text, fragment) {
			t.Errorf("stats message missing %q:\n%s", fragment, text)
		}
	}
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{1000000000, "1,000,000,000"},
	}
	for _, tt := range tests {
		if got := groupDigits(tt.input); got != tt.want {
			t.Errorf("groupDigits(%d) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

