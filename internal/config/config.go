// Package config loads Echo's configuration from the environment, following
// the same warn-on-missing-key, default-the-rest pattern the rest of the
// ambient stack uses.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-parameterized behavior of the service.
type Config struct {
	HTTPAddress string

	// TTS client
	TTSProvider string // "elevenlabs" or "deepgram"
	TTSBaseURL  string
	TTSAPIKey   string
	TTSVoiceID  string
	TTSModelID  string
	TTSTimeout  time.Duration

	// LLM client (summarizer)
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	// STT client
	STTBaseURL string
	STTAPIKey  string
	STTModel   string
	STTTimeout time.Duration

	// VoiceEngine
	ListenTimeout       time.Duration
	SilenceThreshold    float64
	SilenceDuration     time.Duration
	MaxRecordDuration   time.Duration
	ConfidenceThreshold float64
	DispatchMethod      string // "", "tmux", "applescript", "xdotool"

	// AlertManager
	AlertRepeatInterval time.Duration
	AlertMaxRepeats     int

	// Player
	AudioSampleRate  int
	BacklogThreshold int

	// RemotePublisher
	RemoteRoomURL   string
	RemoteAPIKey    string
	RemoteAPISecret string

	// TranscriptWatcher
	ClaudeProjectsPath string
}

// Load reads environment variables (after loading a .env file, if present)
// and returns a Config with documented defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using process environment only")
	}

	cfg := Config{
		HTTPAddress: getenv("ECHO_HTTP_ADDRESS", ":8787"),

		TTSProvider: getenv("ECHO_TTS_PROVIDER", "elevenlabs"),
		TTSBaseURL:  getenv("ECHO_TTS_BASE_URL", "https://api.elevenlabs.io"),
		TTSAPIKey:   os.Getenv("ECHO_TTS_API_KEY"),
		TTSVoiceID:  getenv("ECHO_TTS_VOICE_ID", ""),
		TTSModelID:  getenv("ECHO_TTS_MODEL_ID", "eleven_flash_v2_5"),
		TTSTimeout:  getenvDuration("ECHO_TTS_TIMEOUT", 10*time.Second),

		LLMBaseURL: getenv("ECHO_LLM_BASE_URL", "http://localhost:11434"),
		LLMModel:   getenv("ECHO_LLM_MODEL", "llama3.2"),
		LLMTimeout: getenvDuration("ECHO_LLM_TIMEOUT", 10*time.Second),

		STTBaseURL: getenv("ECHO_STT_BASE_URL", "https://api.openai.com"),
		STTAPIKey:  os.Getenv("ECHO_STT_API_KEY"),
		STTModel:   getenv("ECHO_STT_MODEL", "whisper-1"),
		STTTimeout: getenvDuration("ECHO_STT_TIMEOUT", 15*time.Second),

		ListenTimeout:       getenvDuration("ECHO_LISTEN_TIMEOUT", 20*time.Second),
		SilenceThreshold:    getenvFloat("ECHO_SILENCE_THRESHOLD", 0.01),
		SilenceDuration:     getenvDuration("ECHO_SILENCE_DURATION", 1500*time.Millisecond),
		MaxRecordDuration:   getenvDuration("ECHO_MAX_RECORD_DURATION", 15*time.Second),
		ConfidenceThreshold: getenvFloat("ECHO_CONFIDENCE_THRESHOLD", 0.6),
		DispatchMethod:      os.Getenv("ECHO_DISPATCH_METHOD"),

		AlertRepeatInterval: getenvDuration("ECHO_ALERT_REPEAT_INTERVAL", 30*time.Second),
		AlertMaxRepeats:     getenvInt("ECHO_ALERT_MAX_REPEATS", 5),

		AudioSampleRate:  getenvInt("ECHO_AUDIO_SAMPLE_RATE", 16000),
		BacklogThreshold: getenvInt("ECHO_BACKLOG_THRESHOLD", 3),

		RemoteRoomURL:   os.Getenv("ECHO_REMOTE_ROOM_URL"),
		RemoteAPIKey:    os.Getenv("ECHO_REMOTE_API_KEY"),
		RemoteAPISecret: os.Getenv("ECHO_REMOTE_API_SECRET"),

		ClaudeProjectsPath: getenv("ECHO_TRANSCRIPT_PATH", defaultClaudeProjectsPath()),
	}

	if cfg.TTSAPIKey == "" {
		log.Println("config: ECHO_TTS_API_KEY not set - TTS will be unavailable")
	}
	if cfg.STTAPIKey == "" {
		log.Println("config: ECHO_STT_API_KEY not set - STT will be unavailable")
	}

	log.Printf("config: loaded (http=%s tts_provider=%s llm=%s stt_base=%s)",
		cfg.HTTPAddress, cfg.TTSProvider, cfg.LLMBaseURL, cfg.STTBaseURL)

	return cfg
}

func defaultClaudeProjectsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.claude/projects"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid int for %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid float for %s=%q, using default %v", key, v, def)
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: invalid duration for %s=%q, using default %v", key, v, def)
		return def
	}
	return d
}
