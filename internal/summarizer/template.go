package summarizer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/echohq/echo/internal/events"
)

// spokenOrdinals are the words used to read back options 1 through 10;
// beyond that we fall back to the plain digit.
var spokenOrdinals = []string{
	"one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "ten",
}

// renderSingle renders one tool_executed event into narration text.
func renderSingle(e events.RawEvent) string {
	switch e.ToolName {
	case "Bash":
		cmd, _ := e.ToolInput["command"].(string)
		return "Ran command: " + truncate(cmd, 60)
	case "Read":
		return "Read " + basenameOf(e.ToolInput["file_path"])
	case "Edit":
		return "Edited " + basenameOf(e.ToolInput["file_path"])
	case "Write":
		return "Created " + basenameOf(e.ToolInput["file_path"])
	case "Glob":
		pattern, _ := e.ToolInput["pattern"].(string)
		return "Searched for files matching " + pattern
	case "Grep":
		pattern, _ := e.ToolInput["pattern"].(string)
		return "Searched code for " + pattern
	case "Task":
		return "Launched a sub-agent"
	case "WebFetch":
		return "Fetched a web page"
	case "WebSearch":
		query, _ := e.ToolInput["query"].(string)
		return "Searched the web for " + query
	default:
		return "Used " + e.ToolName + " tool"
	}
}

// toolVerbNoun gives the batched-rendering verb and plural noun for a tool,
// e.g. Edit -> ("Edited", "files").
func toolVerbNoun(toolName string) (verb, noun string, ok bool) {
	switch toolName {
	case "Read":
		return "Read", "files", true
	case "Edit":
		return "Edited", "files", true
	case "Write":
		return "Created", "files", true
	case "Bash":
		return "Ran", "commands", true
	case "Glob":
		return "Searched for", "file patterns", true
	case "Grep":
		return "Searched code for", "patterns", true
	case "WebFetch":
		return "Fetched", "web pages", true
	case "WebSearch":
		return "Searched the web for", "queries", true
	default:
		return "", "", false
	}
}

// renderBatch renders a batch of same- or mixed-tool tool_executed events
// into a single narration string.
func renderBatch(batch []events.RawEvent) string {
	if len(batch) == 0 {
		return ""
	}
	if len(batch) == 1 {
		return renderSingle(batch[0])
	}

	groups := groupByTool(batch)
	if len(groups) == 1 {
		tool := batch[0].ToolName
		verb, noun, ok := toolVerbNoun(tool)
		n := len(batch)
		if !ok {
			return fmt.Sprintf("Used %s tool %d times.", tool, n)
		}
		if tool == "Bash" {
			if n == 1 {
				return "Ran 1 command."
			}
			return fmt.Sprintf("Ran %d commands.", n)
		}
		singular := strings.TrimSuffix(noun, "s")
		if n == 1 {
			return fmt.Sprintf("%s 1 %s.", verb, singular)
		}
		return fmt.Sprintf("%s %d %s.", verb, n, noun)
	}

	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		verb, noun, ok := toolVerbNoun(g.tool)
		n := len(g.events)
		if !ok {
			parts = append(parts, fmt.Sprintf("used %s %d times", g.tool, n))
			continue
		}
		switch {
		case g.tool == "Bash" && n == 1:
			parts = append(parts, "ran a command")
		case g.tool == "Bash":
			parts = append(parts, fmt.Sprintf("ran %d commands", n))
		case n == 1:
			parts = append(parts, fmt.Sprintf("%s %s", strings.ToLower(verb), strings.TrimSuffix(noun, "s")))
		default:
			parts = append(parts, fmt.Sprintf("%s %d %s", strings.ToLower(verb), n, noun))
		}
	}

	joined := joinWithAnd(parts)
	return capitalizeFirst(joined) + "."
}

type toolGroup struct {
	tool   string
	events []events.RawEvent
}

// groupByTool preserves first-seen order across tools while grouping
// consecutive and non-consecutive occurrences of the same tool together.
func groupByTool(batch []events.RawEvent) []toolGroup {
	order := make([]string, 0, 4)
	index := make(map[string]int)
	var groups []toolGroup
	for _, e := range batch {
		i, seen := index[e.ToolName]
		if !seen {
			i = len(groups)
			index[e.ToolName] = i
			order = append(order, e.ToolName)
			groups = append(groups, toolGroup{tool: e.ToolName})
		}
		groups[i].events = append(groups[i].events, e)
	}
	return groups
}

func joinWithAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// renderBlocked renders an agent_blocked RawEvent into narration text,
// including the spoken-ordinal option suffix when options are present.
func renderBlocked(e events.RawEvent) string {
	var base string
	switch e.BlockReason {
	case events.BlockPermissionPrompt:
		base = "The agent needs your permission and is waiting for your answer. It's asking: " + e.Message
	case events.BlockQuestion:
		base = "The agent has a question and is waiting for your answer. It's asking: " + e.Message
	case events.BlockIdlePrompt:
		base = "The agent is idle and waiting for your input."
	default:
		base = "The agent is blocked and needs your attention."
		if e.Message != "" {
			base += " " + e.Message
		}
	}
	if len(e.Options) > 0 {
		base += renderOptions(e.Options)
	}
	return base
}

// renderOptions renders the spoken-ordinal option suffix, e.g.
// " Option one: A. Option two: B."
func renderOptions(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		b.WriteByte(' ')
		b.WriteString("Option ")
		b.WriteString(ordinalWord(i + 1))
		b.WriteString(": ")
		b.WriteString(opt)
		b.WriteByte('.')
	}
	return b.String()
}

func ordinalWord(n int) string {
	if n >= 1 && n <= len(spokenOrdinals) {
		return spokenOrdinals[n-1]
	}
	return strconv.Itoa(n)
}

// renderStopped renders an agent_stopped RawEvent.
func renderStopped(e events.RawEvent) string {
	if e.StopReason == "" {
		return "Agent finished."
	}
	return "Agent stopped: " + e.StopReason
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func basenameOf(v any) string {
	s, _ := v.(string)
	if s == "" {
		return ""
	}
	return filepath.Base(s)
}
