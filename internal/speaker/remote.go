package speaker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hraban/opus"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// signalMessage is the offer/answer/candidate signaling envelope exchanged
// with the remote listening endpoint over the websocket connection.
type signalMessage struct {
	Type          string  `json:"type"`
	Password      string  `json:"password,omitempty"`
	SDP           string  `json:"sdp,omitempty"`
	Candidate     string  `json:"candidate,omitempty"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// RemotePublisher is the optional narration-over-WebRTC sink: it publishes
// synthesized narration audio to a remote listener over a plain WebRTC
// peer connection, using a pion/webrtc + pion/interceptor + hraban/opus
// stack with gorilla/websocket signaling.
type RemotePublisher struct {
	roomURL  string
	apiKey   string
	apiSecret string
	sampleRate int

	mu      sync.Mutex
	conn    *websocket.Conn
	pc      *webrtc.PeerConnection
	encoder *opus.Encoder
	track   *webrtc.TrackLocalStaticSample
	enabled bool
}

// NewRemotePublisher returns a disabled publisher when roomURL/apiKey are
// empty (the feature is optional per config).
func NewRemotePublisher(roomURL, apiKey, apiSecret string, sampleRate int) *RemotePublisher {
	return &RemotePublisher{
		roomURL:    roomURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		sampleRate: sampleRate,
		enabled:    roomURL != "" && apiKey != "",
	}
}

// Enabled reports whether remote publishing is configured.
func (r *RemotePublisher) Enabled() bool {
	return r.enabled
}

// Connect dials the signaling endpoint, negotiates a peer connection with a
// single outbound Opus audio track, and leaves the connection open for
// subsequent Publish calls.
func (r *RemotePublisher) Connect(ctx context.Context) error {
	if !r.enabled {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	header := http.Header{}
	if r.apiSecret != "" {
		header.Set("Authorization", "Bearer "+r.apiSecret)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.roomURL, header)
	if err != nil {
		return fmt.Errorf("remote: dial signaling: %w", err)
	}

	if r.apiKey != "" {
		if err := conn.WriteJSON(signalMessage{Type: "auth", Password: r.apiKey}); err != nil {
			conn.Close()
			return fmt.Errorf("remote: auth: %w", err)
		}
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		conn.Close()
		return err
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, ir); err != nil {
		conn.Close()
		return err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(ir))

	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("remote: new peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: uint32(r.sampleRate), Channels: 1},
		"echo-narration", "echo",
	)
	if err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: new track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: add track: %w", err)
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			conn.WriteJSON(signalMessage{Type: "ice-complete"})
			return
		}
		init := c.ToJSON()
		conn.WriteJSON(signalMessage{Type: "candidate", Candidate: init.Candidate, SDPMid: init.SDPMid, SDPMLineIndex: init.SDPMLineIndex})
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: set local description: %w", err)
	}
	if err := conn.WriteJSON(signalMessage{Type: "offer", SDP: offer.SDP}); err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: send offer: %w", err)
	}

	answered := false
	for !answered {
		var msg signalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			pc.Close()
			conn.Close()
			return fmt.Errorf("remote: read signaling: %w", err)
		}
		switch strings.ToLower(msg.Type) {
		case "answer":
			if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: msg.SDP}); err != nil {
				pc.Close()
				conn.Close()
				return fmt.Errorf("remote: set remote description: %w", err)
			}
			answered = true
		case "error":
			pc.Close()
			conn.Close()
			return fmt.Errorf("remote: signaling error")
		}
	}

	encoder, err := opus.NewEncoder(r.sampleRate, 1, opus.AppVoIP)
	if err != nil {
		pc.Close()
		conn.Close()
		return fmt.Errorf("remote: new opus encoder: %w", err)
	}

	r.conn = conn
	r.pc = pc
	r.track = track
	r.encoder = encoder
	go r.drainSignaling(conn, pc)
	return nil
}

func (r *RemotePublisher) drainSignaling(conn *websocket.Conn, pc *webrtc.PeerConnection) {
	for {
		var msg signalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if strings.ToLower(msg.Type) == "candidate" && msg.Candidate != "" {
			pc.AddICECandidate(webrtc.ICECandidateInit{Candidate: msg.Candidate, SDPMid: msg.SDPMid, SDPMLineIndex: msg.SDPMLineIndex})
		}
	}
}

// Publish encodes mono PCM16 narration audio at r.sampleRate and writes it
// to the outbound Opus track as 20ms samples, written back to back without
// waiting between frames. A no-op when disabled or not yet connected.
func (r *RemotePublisher) Publish(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || r.track == nil {
		return nil
	}

	samples := pcmToInt16(pcm)
	frameSamples := r.sampleRate / 50 // 20ms at r.sampleRate
	opusBuf := make([]byte, 4000)
	for i := 0; i+frameSamples <= len(samples); i += frameSamples {
		n, err := r.encoder.Encode(samples[i:i+frameSamples], opusBuf)
		if err != nil {
			return fmt.Errorf("remote: opus encode: %w", err)
		}
		if n == 0 {
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, opusBuf[:n])
		if err := r.track.WriteSample(media.Sample{Data: pkt, Duration: 20 * time.Millisecond}); err != nil {
			return fmt.Errorf("remote: write sample: %w", err)
		}
	}
	return nil
}

// Connected reports whether Connect has established a peer connection that
// has not since been torn down by Close.
func (r *RemotePublisher) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pc != nil
}

// Close tears down the peer connection and signaling socket.
func (r *RemotePublisher) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pc != nil {
		r.pc.Close()
		r.pc = nil
	}
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func pcmToInt16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return out
}
