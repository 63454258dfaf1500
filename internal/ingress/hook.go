// Package ingress normalizes external input into RawEvents: agent hook
// payloads over HTTP and append-only transcript files on disk.
package ingress

import (
	"encoding/json"
	"log"
	"time"

	"github.com/echohq/echo/internal/events"
)

type hookPayload struct {
	HookEventName string         `json:"hook_event_name"`
	SessionID     string         `json:"session_id"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolInput     map[string]any `json:"tool_input,omitempty"`
	ToolResponse  map[string]any `json:"tool_response,omitempty"`
	Type          string         `json:"type,omitempty"`
	Message       string         `json:"message,omitempty"`
	Options       []string       `json:"options,omitempty"`
	StopReason    string         `json:"stop_reason,omitempty"`
}

var hookEventKinds = map[string]events.Kind{
	"PostToolUse":  events.KindToolExecuted,
	"Notification": events.KindAgentBlocked,
	"Stop":         events.KindAgentStopped,
	"SessionStart": events.KindSessionStart,
	"SessionEnd":   events.KindSessionEnd,
}

var notificationBlockReasons = map[string]events.BlockReason{
	"permission_prompt": events.BlockPermissionPrompt,
	"idle_prompt":        events.BlockIdlePrompt,
	"question":            events.BlockQuestion,
}

// HookIngress normalizes agent hook JSON payloads into RawEvents.
type HookIngress struct{}

// NewHookIngress constructs a HookIngress. It holds no state; normalization
// is a pure function of the payload bytes.
func NewHookIngress() *HookIngress {
	return &HookIngress{}
}

// Normalize parses raw JSON into a RawEvent. Returns ok=false for malformed
// payloads or unrecognized hook_event_name values, both of which are
// dropped with a warn-log per §7's error handling table.
func (h *HookIngress) Normalize(raw []byte) (events.RawEvent, bool) {
	var p hookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Printf("ingress: malformed hook payload: %v", err)
		return events.RawEvent{}, false
	}

	kind, ok := hookEventKinds[p.HookEventName]
	if !ok {
		log.Printf("ingress: unknown hook_event_name %q", p.HookEventName)
		return events.RawEvent{}, false
	}

	e := events.NewRawEvent(kind, p.SessionID, float64(time.Now().UnixNano())/1e9, events.SourceHook)
	e.ToolName = p.ToolName
	e.ToolInput = p.ToolInput
	e.ToolOutput = p.ToolResponse
	e.Message = p.Message
	e.Options = p.Options
	e.StopReason = p.StopReason

	if kind == events.KindAgentBlocked {
		if reason, ok := notificationBlockReasons[p.Type]; ok {
			e.BlockReason = reason
		}
	}

	return e, true
}
