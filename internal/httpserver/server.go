// Package httpserver exposes Echo's localhost HTTP surface: the hook and
// manual-response intake endpoints, a health summary, and server-sent event
// streams of the three buses.
package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	webecho "github.com/labstack/echo/v4"

	echoapp "github.com/echohq/echo/internal/echo"
	"github.com/echohq/echo/internal/events"
)

// keepAliveInterval is the SSE keep-alive comment-frame period.
const keepAliveInterval = 15 * time.Second

// Server bundles the HTTP router and the application graph it serves.
type Server struct {
	Router http.Handler
	app    *echoapp.App
}

// New constructs the HTTP server with routes bound to app.
func New(app *echoapp.App) *Server {
	e := newRouter()
	s := &Server{app: app, Router: e}

	e.POST("/event", s.handleEvent)
	e.POST("/respond", s.handleRespond)
	e.GET("/health", s.handleHealth)
	e.GET("/events", s.handleEventStream)
	e.GET("/narrations", s.handleNarrationStream)
	e.GET("/responses", s.handleResponseStream)

	return s
}

func (s *Server) handleEvent(c webecho.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, webecho.Map{"status": "error"})
	}

	e, ok := s.app.Hooks.Normalize(body)
	if ok {
		s.app.RawBus.Emit(e)
	}
	// Always 200: a malformed or unrecognized payload is dropped, not
	// rejected.
	return c.JSON(http.StatusOK, webecho.Map{"status": "accepted"})
}

type respondRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (s *Server) handleRespond(c webecho.Context) error {
	var req respondRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, webecho.Map{"status": "error", "session_id": req.SessionID})
	}

	dispatched := s.app.Voice.HandleManualResponse(c.Request().Context(), req.SessionID, req.Text)
	status := "dispatch_failed"
	if dispatched {
		status = "ok"
	}
	return c.JSON(http.StatusOK, webecho.Map{
		"status":     status,
		"text":       req.Text,
		"session_id": req.SessionID,
	})
}

func (s *Server) handleHealth(c webecho.Context) error {
	return c.JSON(http.StatusOK, webecho.Map{
		"subscribers":          s.app.RawBus.SubscriberCount(),
		"narration_subscribers": s.app.NarrationBus.SubscriberCount(),
		"tts_state":            string(s.app.Speaker.State()),
		"tts_available":        s.app.Speaker.TTSAvailable(),
		"audio_available":      s.app.Speaker.AudioAvailable(),
		"remote_connected":     s.app.Speaker.RemoteConnected(),
		"alert_active":         s.app.Alert.ActiveCount() > 0,
		"stt_state":            s.app.Voice.State(),
		"stt_available":        s.app.Voice.STTAvailable(),
		"mic_available":        s.app.Voice.MicAvailable(),
		"dispatch_available":   s.app.Voice.DispatchAvailable(),
		"stt_listening":        s.app.Voice.IsListening(),
	})
}

func (s *Server) handleEventStream(c webecho.Context) error {
	sub := s.app.RawBus.Subscribe()
	defer s.app.RawBus.Unsubscribe(sub)
	return streamEvents[events.RawEvent](c, sub.C())
}

func (s *Server) handleNarrationStream(c webecho.Context) error {
	sub := s.app.NarrationBus.Subscribe()
	defer s.app.NarrationBus.Unsubscribe(sub)
	return streamEvents[events.Narration](c, sub.C())
}

func (s *Server) handleResponseStream(c webecho.Context) error {
	sub := s.app.ResponseBus.Subscribe()
	defer s.app.ResponseBus.Unsubscribe(sub)
	return streamEvents[events.Response](c, sub.C())
}

// streamEvents writes each item from ch to c's response as an SSE "data:"
// frame, sending a ": keep-alive" comment frame every keepAliveInterval,
// built directly on the http.Flusher the echo response already exposes.
func streamEvents[T any](c webecho.Context, ch <-chan T) error {
	w := c.Response()
	w.Header().Set(webecho.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(item)
			if err != nil {
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				return nil
			}
			w.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
