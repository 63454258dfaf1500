package summarizer

import (
	"testing"

	"github.com/echohq/echo/internal/events"
)

func TestRenderSingleBash(t *testing.T) {
	e := events.RawEvent{
		ToolName:  "Bash",
		ToolInput: map[string]any{"command": "npm test"},
	}
	got := renderSingle(e)
	want := "Ran command: npm test"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderSingleBashTruncatesAt60(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	e := events.RawEvent{ToolName: "Bash", ToolInput: map[string]any{"command": long}}
	got := renderSingle(e)
	if len(got) != len("Ran command: ")+60 {
		t.Fatalf("expected truncation to 60 chars, got len=%d: %q", len(got), got)
	}
}

func TestRenderSingleEditUsesBasename(t *testing.T) {
	e := events.RawEvent{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/src/app/main.go"}}
	got := renderSingle(e)
	want := "Edited main.go"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderBatchSameToolThreeFiles(t *testing.T) {
	batch := []events.RawEvent{
		{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/a.ts"}},
		{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/b.ts"}},
		{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/c.ts"}},
	}
	got := renderBatch(batch)
	want := "Edited 3 files."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderBatchMixedTools(t *testing.T) {
	batch := []events.RawEvent{
		{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/a.ts"}},
		{ToolName: "Edit", ToolInput: map[string]any{"file_path": "/b.ts"}},
		{ToolName: "Bash", ToolInput: map[string]any{"command": "go test"}},
	}
	got := renderBatch(batch)
	want := "Edited 2 files and ran a command."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderBlockedPermissionPromptWithOptions(t *testing.T) {
	e := events.RawEvent{
		BlockReason: events.BlockPermissionPrompt,
		Message:     "Allow edit of auth.ts?",
		Options:     []string{"Allow", "Deny"},
	}
	got := renderBlocked(e)
	want := "The agent needs your permission and is waiting for your answer. It's asking: Allow edit of auth.ts? Option one: Allow. Option two: Deny."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderBlockedIdlePrompt(t *testing.T) {
	e := events.RawEvent{BlockReason: events.BlockIdlePrompt}
	got := renderBlocked(e)
	want := "The agent is idle and waiting for your input."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestOrdinalWordBeyondTenFallsBackToDigit(t *testing.T) {
	got := ordinalWord(11)
	if got != "11" {
		t.Fatalf("got %q, want %q", got, "11")
	}
}

func TestRenderStopped(t *testing.T) {
	if got := renderStopped(events.RawEvent{}); got != "Agent finished." {
		t.Fatalf("got %q", got)
	}
	if got := renderStopped(events.RawEvent{StopReason: "error"}); got != "Agent stopped: error" {
		t.Fatalf("got %q", got)
	}
}
