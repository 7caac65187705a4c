package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/screa/puzzle-hunter/internal/config"
	"github.com/screa/puzzle-hunter/internal/logger"
	"github.com/screa/puzzle-hunter/pkg/stats"
	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	longPollSeconds = 30
	pollRetryDelay  = 5 * time.Second
)

// Controller is the solver surface the bot drives.
type Controller interface {
	Start()
	Stop()
	Active() bool
	StateName() string
}

// Bot serves chat commands by long-polling getUpdates. Only messages
// from the configured chat are honored.
type Bot struct {
	notifier *Notifier
	solver   Controller
	stats    *stats.Stats
	config   *config.Config
	puzzles  int
	logger   *logger.Logger
	client   *http.Client
	offset   int64
}

// NewBot creates a command bot on top of an existing notifier.
func NewBot(n *Notifier, ctrl Controller, st *stats.Stats, cfg *config.Config, puzzleCount int, log *logger.Logger) *Bot {
	return &Bot{
		notifier: n,
		solver:   ctrl,
		stats:    st,
		config:   cfg,
		puzzles:  puzzleCount,
		logger:   log,
		// The poll client must outlive the server-side long poll window.
		client: &http.Client{Timeout: (longPollSeconds + 10) * time.Second},
	}
}

// Run polls for commands until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Println("Telegram bot listening for commands")
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Printf("Telegram poll failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		for _, u := range updates {
			b.offset = u.UpdateID + 1
			b.handleUpdate(u)
		}
	}
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description"`
	Result      []update `json:"result"`
}

func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d&offset=%d",
		b.notifier.apiBase, b.notifier.token, longPollSeconds, b.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram poll: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("telegram poll: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram poll: status %d", resp.StatusCode)
	}

	var parsed updatesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("telegram poll: decode response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram poll: api error: %s", parsed.Description)
	}
	return parsed.Result, nil
}

func (b *Bot) handleUpdate(u update) {
	if u.Message == nil {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != b.notifier.chatID {
		return
	}

	text := strings.TrimSpace(u.Message.Text)
	if text == "" || text[0] != '/' {
		return
	}
	cmd := strings.ToLower(strings.Fields(text)[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // strip "@botname" used in group chats
	}
	b.logger.Debugf("telegram command %s from chat %d", cmd, u.Message.Chat.ID)

	reply := b.dispatch(cmd)
	if reply == "" {
		return
	}
	if err := b.notifier.Send(reply); err != nil {
		b.logger.Printf("Telegram reply failed: %v", err)
	}
}

// dispatch maps a command to its reply text and side effects.
func (b *Bot) dispatch(cmd string) string {
	switch cmd {
	case "/start":
		if b.solver.Active() {
			return "▶️ Already running"
		}
		b.solver.Start()
		return "▶️ Solver started"
	case "/stop":
		if !b.solver.Active() {
			return "⏹ Already stopped"
		}
		b.solver.Stop()
		return "⏹ Solver stopping at the next checkpoint"
	case "/status":
		return b.statusText()
	case "/stats":
		return b.statsText()
	case "/config":
		return b.configText()
	case "/help":
		return helpText
	default:
		return "Unknown command. Send /help for the list."
	}
}

const helpText = `🧩 *Puzzle hunter commands*

/start - arm the solver
/stop - pause after the current trial
/status - state and headline counters
/stats - detailed counters
/config - active configuration
/help - this list`

func (b *Bot) statusText() string {
	snap := b.stats.Snapshot()
	icon := "🔴"
	if b.solver.Active() {
		icon = "🟢"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s *Solver %s*\n\n", icon, b.solver.StateName())
	fmt.Fprintf(&sb, "Keys checked: %s\n", groupDigits(snap.Trials))
	fmt.Fprintf(&sb, "Matches: %d\n", snap.Matches)
	if snap.CurrentPuzzle > 0 {
		fmt.Fprintf(&sb, "Current puzzle: #%d\n", snap.CurrentPuzzle)
	}
	fmt.Fprintf(&sb, "Uptime: %s\n", snap.Uptime().Round(time.Second))
	fmt.Fprintf(&sb, "Rate: %.0f keys/sec\n", snap.Rate())
	fmt.Fprintf(&sb, "Host: %s (%d threads)", cpuModel(), runtime.NumCPU())
	return sb.String()
}

var (
	cpuModelOnce sync.Once
	cpuModelName string
)

// cpuModel reads the processor name once; /status can be polled often.
func cpuModel() string {
	cpuModelOnce.Do(func() {
		cpuModelName = "unknown"
		if info, err := cpu.Info(); err == nil && len(info) > 0 {
			cpuModelName = info[0].ModelName
		}
	})
	return cpuModelName
}

func (b *Bot) statsText() string {
	snap := b.stats.Snapshot()

	var sb strings.Builder
	sb.WriteString("📊 *Detailed statistics*\n\n")
	fmt.Fprintf(&sb, "Keys checked: %s\n", groupDigits(snap.Trials))
	fmt.Fprintf(&sb, "Sessions completed: %d\n", snap.Sessions)
	fmt.Fprintf(&sb, "Matches: %d\n", snap.Matches)
	if snap.CurrentPuzzle > 0 {
		fmt.Fprintf(&sb, "Current puzzle: #%d\n", snap.CurrentPuzzle)
	}
	fmt.Fprintf(&sb, "Started: %s\n", snap.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&sb, "Uptime: %s\n", snap.Uptime().Round(time.Second))
	fmt.Fprintf(&sb, "Average rate: %.0f keys/sec", snap.Rate())
	return sb.String()
}

func (b *Bot) configText() string {
	var sb strings.Builder
	sb.WriteString("⚙️ *Configuration*\n\n")
	fmt.Fprintf(&sb, "Workers: %d\n", b.config.Workers)
	fmt.Fprintf(&sb, "Session: %s\n", b.config.SessionDuration)
	fmt.Fprintf(&sb, "Rest: %s\n", b.config.RestDuration)
	fmt.Fprintf(&sb, "Address mode: %s\n", b.config.AddressMode)
	fmt.Fprintf(&sb, "Min bits: %d\n", b.config.MinBits)
	if b.config.MaxBits > 0 {
		fmt.Fprintf(&sb, "Max bits: %d\n", b.config.MaxBits)
	}
	if b.config.MinReward > 0 {
		fmt.Fprintf(&sb, "Min reward: %.8f BTC\n", b.config.MinReward)
	}
	fmt.Fprintf(&sb, "Stop on found: %v\n", b.config.StopOnFound)
	fmt.Fprintf(&sb, "Puzzles loaded: %d", b.puzzles)
	return sb.String()
}
