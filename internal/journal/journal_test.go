package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

func TestAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solutions.log")
	j := New(path)

	found := time.Date(2026, 8, 23, 12, 30, 45, 0, time.UTC)
	m := &types.Match{
		Puzzle:        14,
		PrivateKeyHex: "0000000000000000000000000000000000000000000000000000000000002930",
		Address:       "1ErZWg5cFCe4Vw5BzgfzB74VNLaXEiEkhk",
		Encoding:      "compressed",
		FoundAt:       found,
	}
	p := &types.Puzzle{Number: 14, Bits: 14, RewardBTC: 6.6}

	if err := j.Append(m, p); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if err := j.Append(m, p); err != nil {
		t.Fatalf("second Append() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	content := string(data)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("journal has %d lines, want 2:\n%s", len(lines), content)
	}
	want := "[2026-08-23 12:30:45 UTC] PUZZLE 14 SOLVED - Private Key: " +
		"0000000000000000000000000000000000000000000000000000000000002930, " +
		"Address: 1ErZWg5cFCe4Vw5BzgfzB74VNLaXEiEkhk, Reward: 6.60000000 BTC"
	if lines[0] != want {
		t.Errorf("journal line = %q, want %q", lines[0], want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("journal permissions = %o, want 600", perm)
	}
}

func TestAppendNilPuzzle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solutions.log")
	j := New(path)

	m := &types.Match{Puzzle: 3, PrivateKeyHex: "07", Address: "1abc", FoundAt: time.Now()}
	if err := j.Append(m, nil); err != nil {
		t.Fatalf("Append() with nil puzzle error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Reward: 0.00000000 BTC") {
		t.Errorf("journal line missing zero reward: %s", data)
	}
}

func TestAppendError(t *testing.T) {
	// Using a directory as the journal path makes the open fail.
	j := New(t.TempDir())
	m := &types.Match{Puzzle: 1, PrivateKeyHex: "01", Address: "1abc", FoundAt: time.Now()}
	if err := j.Append(m, nil); err == nil {
		t.Error("Append() to a directory path expected error")
	}
}
