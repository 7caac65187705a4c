package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

// Environment variables holding the bot credentials. Credentials are
// never taken from flags so they stay out of shell history.
const (
	EnvToken  = "TELEGRAM_BOT_TOKEN"
	EnvChatID = "TELEGRAM_CHAT_ID"
)

const defaultAPIBase = "https://api.telegram.org"

// Errors
var (
	ErrNoCredentials = errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must both be set")
)

// Notifier sends messages to a fixed Telegram chat over the Bot API.
type Notifier struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// NewNotifier creates a notifier for the given bot token and chat.
func NewNotifier(token, chatID string) *Notifier {
	return &Notifier{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewFromEnv builds a notifier from the TELEGRAM_BOT_TOKEN and
// TELEGRAM_CHAT_ID environment variables.
func NewFromEnv() (*Notifier, error) {
	token := os.Getenv(EnvToken)
	chatID := os.Getenv(EnvChatID)
	if token == "" || chatID == "" {
		return nil, ErrNoCredentials
	}
	return NewNotifier(token, chatID), nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send pushes a Markdown-formatted message to the configured chat.
func (n *Notifier) Send(text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	resp, err := n.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("telegram send: decode response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram send: api error: %s", parsed.Description)
	}
	return nil
}

// TestConnection sends a short liveness message.
func (n *Notifier) TestConnection() error {
	return n.Send("🤖 Puzzle hunter bot online")
}

// NotifyStartup announces the loaded puzzle set and active filters.
func (n *Notifier) NotifyStartup(total, eligible int, f types.Filter) error {
	var b strings.Builder
	b.WriteString("🚀 *Puzzle hunter started*\n\n")
	fmt.Fprintf(&b, "Puzzles loaded: %d\n", total)
	fmt.Fprintf(&b, "Eligible: %d\n", eligible)
	fmt.Fprintf(&b, "Min bits: %d\n", f.MinBits)
	if f.MaxBits > 0 {
		fmt.Fprintf(&b, "Max bits: %d\n", f.MaxBits)
	}
	if f.MinReward > 0 {
		fmt.Fprintf(&b, "Min reward: %.8f BTC\n", f.MinReward)
	}
	b.WriteString("\nSend /start to begin, /help for all commands")
	return n.Send(b.String())
}

// NotifyMatch reports a solved puzzle, including the private key. When
// the journal write failed, the message carries the only durable copy
// of the key.
func (n *Notifier) NotifyMatch(m *types.Match, p *types.Puzzle) error {
	bits := 0
	reward := 0.0
	if p != nil {
		bits = p.Bits
		reward = p.RewardBTC
	}

	var b strings.Builder
	b.WriteString("🎉🎉🎉 *BITCOIN PUZZLE SOLVED!* 🎉🎉🎉\n\n")
	fmt.Fprintf(&b, "*Puzzle:* #%d\n", m.Puzzle)
	fmt.Fprintf(&b, "*Bits:* %d\n", bits)
	fmt.Fprintf(&b, "*Reward:* %.8f BTC\n", reward)
	fmt.Fprintf(&b, "*Address:* `%s`\n", m.Address)
	fmt.Fprintf(&b, "*Private key (hex):* `%s`\n", m.PrivateKeyHex)
	fmt.Fprintf(&b, "*Encoding:* %s\n", m.Encoding)
	if !m.Persisted {
		b.WriteString("\n⚠️ *NOT PERSISTED TO DISK* - copy the key from this message now\n")
	}
	b.WriteString("\n🚨 Secure this private key immediately!")
	return n.Send(b.String())
}

// NotifyStats pushes a counters report.
func (n *Notifier) NotifyStats(snap types.Snapshot) error {
	var b strings.Builder
	b.WriteString("📊 *Search statistics*\n\n")
	fmt.Fprintf(&b, "Keys checked: %s\n", groupDigits(snap.Trials))
	fmt.Fprintf(&b, "Sessions completed: %d\n", snap.Sessions)
	fmt.Fprintf(&b, "Matches: %d\n", snap.Matches)
	if snap.CurrentPuzzle > 0 {
		fmt.Fprintf(&b, "Current puzzle: #%d\n", snap.CurrentPuzzle)
	}
	fmt.Fprintf(&b, "Uptime: %s\n", snap.Uptime().Round(time.Second))
	fmt.Fprintf(&b, "Average rate: %.0f keys/sec", snap.Rate())
	return n.Send(b.String())
}

// NotifyError reports an operational problem.
func (n *Notifier) NotifyError(msg string) error {
	return n.Send("⚠️ " + msg)
}

// groupDigits renders n with thousands separators.
func groupDigits(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
