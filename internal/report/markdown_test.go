package report

import (
	"strings"
	"testing"
	"time"

	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/model"
)

func sampleRun() *database.Run {
	return &database.Run{
		ID:        "run-1",
		Seed:      "@darkpool",
		MaxDepth:  2,
		Delay:     1500 * time.Millisecond,
		Status:    database.RunStatusCompleted,
		StartedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
}

func TestMarkdownWriterWrite(t *testing.T) {
	t.Parallel()

	findings := []database.Finding{
		{
			RunID:    "run-1",
			UserID:   1,
			Username: "alice",
			Depth:    0,
			Result: &model.ScanResult{
				UserID:   1,
				Username: "alice",
				Bio:      "backup at @alice_backup",
				Links:    []string{"alice_backup"},
			},
		},
		{
			RunID:          "run-1",
			UserID:         3,
			Depth:          1,
			DiscoveredFrom: "@alice",
			Result: &model.ScanResult{
				UserID:    3,
				FirstName: "Carol",
				Links:     []string{"carol_side"},
			},
		},
	}
	edges := []database.GiftEdge{
		{RunID: "run-1", ReceiverID: 1, SenderID: 3, GiftID: 10, Stars: 50},
		{RunID: "run-1", ReceiverID: 1, SenderID: 99, GiftID: 11, Stars: 5},
	}

	var sb strings.Builder
	if err := NewMarkdownWriter(&sb).Write(sampleRun(), findings, edges); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"# Telephasma Scan Report",
		"`run-1`",
		"`@darkpool`",
		"✅ Complete",
		"@alice",
		"Carol",
		"alice_backup",
		"```mermaid",
		"Findings by Depth",
		"## Gift Graph",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Edge endpoints without findings fall back to the raw id.
	if !strings.Contains(out, "99") {
		t.Error("expected unknown sender to appear as a raw id")
	}
}

func TestMarkdownWriterEmptyRun(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	run.Status = database.RunStatusStopped

	var sb strings.Builder
	if err := NewMarkdownWriter(&sb).Write(run, nil, nil); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "⚠️ Stopped") {
		t.Error("expected stopped status marker")
	}
	if !strings.Contains(out, "No findings recorded.") {
		t.Error("expected empty findings notice")
	}
	if strings.Contains(out, "```mermaid") {
		t.Error("expected no chart for an empty run")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this is a longer string", 10, "this is..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
