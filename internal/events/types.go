// Package events defines the payload types carried on Echo's three buses:
// RawEvent on the raw bus, Narration on the narration bus, and Response on
// the response bus.
package events

import "github.com/google/uuid"

// Kind identifies the normalized shape of a RawEvent.
type Kind string

const (
	KindToolExecuted  Kind = "tool_executed"
	KindAgentBlocked  Kind = "agent_blocked"
	KindAgentStopped  Kind = "agent_stopped"
	KindAgentMessage  Kind = "agent_message"
	KindSessionStart  Kind = "session_start"
	KindSessionEnd    Kind = "session_end"
)

// Source identifies which producer emitted a RawEvent.
type Source string

const (
	SourceHook       Source = "hook"
	SourceTranscript Source = "transcript"
)

// BlockReason is the cause of an agent_blocked event.
type BlockReason string

const (
	BlockPermissionPrompt BlockReason = "permission_prompt"
	BlockIdlePrompt       BlockReason = "idle_prompt"
	BlockQuestion         BlockReason = "question"
)

// Priority is the SpeakerEngine scheduling class for a Narration.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Method records how a Narration's text was produced, for observability.
type Method string

const (
	MethodTemplate   Method = "template"
	MethodLLM        Method = "llm"
	MethodTruncation Method = "truncation"
)

// MatchMethod records how a Response was matched from a transcript.
type MatchMethod string

const (
	MatchOrdinal  MatchMethod = "ordinal"
	MatchYesNo    MatchMethod = "yes_no"
	MatchDirect   MatchMethod = "direct"
	MatchFuzzy    MatchMethod = "fuzzy"
	MatchVerbatim MatchMethod = "verbatim"
)

// RawEvent is the normalized input carried on the raw bus. It is immutable
// after emission; all payload fields beyond Kind and SessionID are optional
// at the type level and required only per-kind.
type RawEvent struct {
	ID        string
	Kind      Kind
	SessionID string
	Timestamp float64
	Source    Source

	// tool_executed
	ToolName   string
	ToolInput  map[string]any
	ToolOutput map[string]any

	// agent_blocked
	BlockReason BlockReason
	Message     string
	Options     []string

	// agent_message
	Text string

	// agent_stopped
	StopReason string
}

// NewRawEvent returns a RawEvent with a freshly generated ID.
func NewRawEvent(kind Kind, sessionID string, timestamp float64, source Source) RawEvent {
	return RawEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		SessionID: sessionID,
		Timestamp: timestamp,
		Source:    source,
	}
}

// Narration is carried on the narration bus.
type Narration struct {
	Text          string
	Priority      Priority
	SourceKind    Kind
	SessionID     string
	SourceEventID string
	Method        Method
	BlockReason   BlockReason
	HasBlockReason bool
	Options       []string
}

// Response is carried on the response bus.
type Response struct {
	Text        string
	Transcript  string
	SessionID   string
	MatchMethod MatchMethod
	Confidence  float64
	Timestamp   float64
	Options     []string
}
