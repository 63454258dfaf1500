package ingress

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/events"
)

// dedupTTL is how long a deduplication hash stays valid.
const dedupTTL = 1 * time.Second

// dedupCacheLimit bounds the small LRU of recently seen dedup keys.
const dedupCacheLimit = 256

type transcriptContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type transcriptMessage struct {
	Role    string                    `json:"role"`
	Content []transcriptContentBlock `json:"content"`
}

type transcriptEntry struct {
	Type      string            `json:"type"`
	SessionID string            `json:"sessionId"`
	Timestamp any               `json:"timestamp"`
	Message   transcriptMessage `json:"message"`
}

// TranscriptWatcher tails append-only JSONL transcript files under a root
// directory and emits RawEvent{kind=agent_message, source=transcript} for
// each new assistant text entry, deduplicated by a (session_id, coarse
// timestamp) key against the watcher's own recent emissions; hook-derived
// events are not entered in that cache. Ported from the watchdog-based
// Python transcript watcher; fsnotify is its Go analogue.
type TranscriptWatcher struct {
	rawBus  *bus.Bus[events.RawEvent]
	rootDir string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	offsets map[string]int64
	seen    map[string]time.Time
	seenLRU []string

	cancel func()
	done   chan struct{}
}

// NewTranscriptWatcher constructs a watcher rooted at rootDir (typically
// ~/.claude/projects).
func NewTranscriptWatcher(rawBus *bus.Bus[events.RawEvent], rootDir string) *TranscriptWatcher {
	return &TranscriptWatcher{
		rawBus:  rawBus,
		rootDir: rootDir,
		offsets: make(map[string]int64),
		seen:    make(map[string]time.Time),
		done:    make(chan struct{}),
	}
}

// Start begins watching rootDir recursively for .jsonl file changes.
// A missing or unreadable root directory disables the watcher without
// failing startup (transcript ingestion is a complementary data source).
func (w *TranscriptWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		close(w.done)
		return fmt.Errorf("ingress: new fsnotify watcher: %w", err)
	}
	w.watcher = watcher

	if err := w.addTreeWatches(); err != nil {
		log.Printf("ingress: transcript watcher disabled: %v", err)
		watcher.Close()
		w.watcher = nil
		close(w.done)
		return nil
	}

	go w.loop()
	return nil
}

func (w *TranscriptWatcher) addTreeWatches() error {
	return filepath.WalkDir(w.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Stop closes the underlying fsnotify watcher and waits for the loop to
// exit.
func (w *TranscriptWatcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
	<-w.done
}

func (w *TranscriptWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingress: transcript watcher error: %v", err)
		}
	}
}

func (w *TranscriptWatcher) handleFsEvent(ev fsnotify.Event) {
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}
	if ev.Op&fsnotify.Remove == fsnotify.Remove || ev.Op&fsnotify.Rename == fsnotify.Rename {
		w.mu.Lock()
		delete(w.offsets, ev.Name)
		w.mu.Unlock()
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.processFile(ev.Name)
	}
}

func (w *TranscriptWatcher) processFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	lastOffset := w.offsets[path]
	w.mu.Unlock()

	if info.Size() < lastOffset {
		lastOffset = 0 // file truncated/recreated
	}
	if info.Size() == lastOffset {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("ingress: cannot open transcript file %s: %v", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Seek(lastOffset, 0); err != nil {
		log.Printf("ingress: cannot seek transcript file %s: %v", path, err)
		return
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	var newOffset int64 = lastOffset
	for scanner.Scan() {
		line := scanner.Bytes()
		newOffset += int64(len(line)) + 1
		w.handleLine(bytes.TrimSpace(line), path)
	}

	w.mu.Lock()
	w.offsets[path] = newOffset
	w.mu.Unlock()
}

func (w *TranscriptWatcher) handleLine(line []byte, path string) {
	if len(line) == 0 {
		return
	}
	var entry transcriptEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		log.Printf("ingress: malformed transcript line in %s: %v", path, err)
		return
	}

	text := extractAssistantText(entry)
	if text == "" {
		return
	}
	sessionID := entry.SessionID
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}

	ts := entryTimestamp(entry)
	if w.isDuplicate(sessionID, ts) {
		return
	}

	e := events.NewRawEvent(events.KindAgentMessage, sessionID, ts, events.SourceTranscript)
	e.Text = text
	w.rawBus.Emit(e)
}

func extractAssistantText(entry transcriptEntry) string {
	if entry.Type != "assistant" || entry.Message.Role != "assistant" {
		return ""
	}
	var parts []string
	for _, block := range entry.Message.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, strings.TrimSpace(block.Text))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n")
}

func entryTimestamp(entry transcriptEntry) float64 {
	switch v := entry.Timestamp.(type) {
	case float64:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return float64(t.UnixNano()) / 1e9
		}
	}
	return float64(time.Now().UnixNano()) / 1e9
}

// isDuplicate keys on (session_id, floor(timestamp*10)): a ~100ms timestamp
// bucket hashed with the session ID, held in a small LRU.
func (w *TranscriptWatcher) isDuplicate(sessionID string, timestamp float64) bool {
	key := dedupKey(sessionID, timestamp)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.evictExpired()

	if _, ok := w.seen[key]; ok {
		return true
	}

	w.seen[key] = time.Now()
	w.seenLRU = append(w.seenLRU, key)
	if len(w.seenLRU) > dedupCacheLimit {
		oldest := w.seenLRU[0]
		w.seenLRU = w.seenLRU[1:]
		delete(w.seen, oldest)
	}
	return false
}

func (w *TranscriptWatcher) evictExpired() {
	now := time.Now()
	kept := w.seenLRU[:0]
	for _, key := range w.seenLRU {
		if now.Sub(w.seen[key]) < dedupTTL {
			kept = append(kept, key)
		} else {
			delete(w.seen, key)
		}
	}
	w.seenLRU = kept
}

func dedupKey(sessionID string, timestamp float64) string {
	coarse := float64(int64(timestamp*10)) / 10
	raw := fmt.Sprintf("%s:%v", sessionID, coarse)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)[:16]
}
