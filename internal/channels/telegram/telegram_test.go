package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		limit  int
		chunks int
	}{
		{"empty", "", 10, 0},
		{"under limit", "hello", 10, 1},
		{"exactly limit", strings.Repeat("a", 10), 10, 1},
		{"two chunks", strings.Repeat("a", 15), 10, 2},
		{"many chunks", strings.Repeat("a", 95), 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text, tt.limit)
			if len(got) != tt.chunks {
				t.Fatalf("chunk count = %d, want %d", len(got), tt.chunks)
			}
			for _, c := range got {
				if len(c) > tt.limit {
					t.Errorf("chunk length %d exceeds limit %d", len(c), tt.limit)
				}
			}
			if strings.Join(got, "") != strings.ReplaceAll(tt.text, "\n", "") && tt.text != "" {
				// Newlines at cut points are consumed; raw text has none here.
				if strings.Join(got, "") != tt.text {
					t.Error("chunks do not reassemble to input")
				}
			}
		})
	}
}

func TestSplitMessage_PrefersNewlineCut(t *testing.T) {
	text := strings.Repeat("a", 7) + "\n" + strings.Repeat("b", 7)
	got := splitMessage(text, 10)
	if len(got) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(got))
	}
	if got[0] != strings.Repeat("a", 7) {
		t.Errorf("first chunk = %q, want cut at newline", got[0])
	}
	if got[1] != strings.Repeat("b", 7) {
		t.Errorf("second chunk = %q, separator not consumed", got[1])
	}
}

func TestSplitMessage_IgnoresEarlyNewline(t *testing.T) {
	// Newline in the front half of the window should not be the cut point.
	text := "ab\n" + strings.Repeat("c", 12)
	got := splitMessage(text, 10)
	if len(got[0]) != 10 {
		t.Errorf("first chunk length = %d, want full window 10", len(got[0]))
	}
}

func TestAllowlist(t *testing.T) {
	c := &Channel{allowed: map[int64]bool{42: true}}
	if !c.allowed[42] {
		t.Error("listed user not allowed")
	}
	if c.allowed[7] {
		t.Error("unlisted user allowed")
	}
	empty := &Channel{allowed: map[int64]bool{}}
	if empty.allowed[42] {
		t.Error("empty allowlist should deny everyone")
	}
}
