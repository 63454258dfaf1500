// Package echo wires Echo's buses, ingestion, summarization, speech, and
// voice components into a single process-lifetime object.
package echo

import (
	"context"
	"log"

	"github.com/echohq/echo/internal/alert"
	"github.com/echohq/echo/internal/bus"
	"github.com/echohq/echo/internal/config"
	"github.com/echohq/echo/internal/events"
	"github.com/echohq/echo/internal/ingress"
	"github.com/echohq/echo/internal/speaker"
	"github.com/echohq/echo/internal/summarizer"
	"github.com/echohq/echo/internal/voice"
)

// busCapacity bounds the three event buses. A slow subscriber whose queue is
// full misses the newly emitted event rather than blocking a producer; see
// bus.Bus.
const busCapacity = 256

// App is the root object: configuration is read once at construction, and
// the three buses, the Summarizer, the AlertManager, the SpeakerEngine, the
// VoiceEngine, the HookIngress and the TranscriptWatcher are module-wide
// singletons it owns for the server's lifespan.
type App struct {
	RawBus       *bus.Bus[events.RawEvent]
	NarrationBus *bus.Bus[events.Narration]
	ResponseBus  *bus.Bus[events.Response]

	Summarizer *summarizer.Summarizer
	Alert      *alert.Manager
	Speaker    *speaker.Engine
	Voice      *voice.Engine
	Hooks      *ingress.HookIngress
	Transcript *ingress.TranscriptWatcher
}

// New builds the full dependency graph from cfg without starting anything.
func New(cfg config.Config) *App {
	rawBus := bus.New[events.RawEvent]("raw", busCapacity)
	narrationBus := bus.New[events.Narration]("narration", busCapacity)
	responseBus := bus.New[events.Response]("response", busCapacity)

	llm := summarizer.NewLLMSummarizer(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	sum := summarizer.New(rawBus, narrationBus, llm)

	alertManager := alert.New(rawBus, cfg.AlertRepeatInterval, cfg.AlertMaxRepeats)

	provider := speaker.NewProvider(cfg.TTSProvider, cfg.TTSBaseURL, cfg.TTSAPIKey, cfg.TTSVoiceID, cfg.TTSModelID, cfg.TTSTimeout)
	player := speaker.NewPlayer(cfg.AudioSampleRate, cfg.BacklogThreshold)
	publisher := speaker.NewRemotePublisher(cfg.RemoteRoomURL, cfg.RemoteAPIKey, cfg.RemoteAPISecret, cfg.AudioSampleRate)
	speakerEngine := speaker.New(narrationBus, provider, player, publisher, alertManager, cfg.BacklogThreshold)

	mic := voice.NewMicrophone()
	stt := voice.NewSTTClient(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel, cfg.STTTimeout)
	dispatcher := voice.NewDispatcher(cfg.DispatchMethod)
	voiceCfg := voice.Config{
		ListenTimeout:       cfg.ListenTimeout,
		SilenceThreshold:    cfg.SilenceThreshold,
		SilenceDuration:     cfg.SilenceDuration,
		MaxRecordDuration:   cfg.MaxRecordDuration,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		SampleRate:          cfg.AudioSampleRate,
	}
	voiceEngine := voice.New(rawBus, responseBus, mic, stt, dispatcher, speakerEngine, voiceCfg)

	hooks := ingress.NewHookIngress()
	transcriptWatcher := ingress.NewTranscriptWatcher(rawBus, cfg.ClaudeProjectsPath)

	return &App{
		RawBus:       rawBus,
		NarrationBus: narrationBus,
		ResponseBus:  responseBus,
		Summarizer:   sum,
		Alert:        alertManager,
		Speaker:      speakerEngine,
		Voice:        voiceEngine,
		Hooks:        hooks,
		Transcript:   transcriptWatcher,
	}
}

// Start brings up every component in the reverse order of the bus diagram:
// the consumers attach before the producers that could feed them, so no
// event is dropped for lack of a subscriber during startup. The
// TranscriptWatcher starts last since it is the component most likely to
// fail on a missing directory and must not block the rest of the graph.
func (a *App) Start(ctx context.Context) {
	a.Speaker.Start(ctx)
	a.Voice.Start(ctx)
	a.Alert.Start(ctx)
	a.Summarizer.Start(ctx)
	if err := a.Transcript.Start(); err != nil {
		// A missing root directory already degrades gracefully inside
		// Start; this only fires if the fsnotify watcher itself cannot be
		// constructed. Transcript ingestion is a complementary data source,
		// so Echo keeps running without it rather than failing startup.
		log.Printf("echo: transcript watcher unavailable: %v", err)
	}
}

// Stop tears down components in the opposite order from Start.
func (a *App) Stop() {
	a.Transcript.Stop()
	a.Summarizer.Stop()
	a.Alert.Stop()
	a.Voice.Stop()
	a.Speaker.Stop()
}
