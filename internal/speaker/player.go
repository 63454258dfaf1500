package speaker

import (
	"container/heap"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/echohq/echo/internal/events"
)

// playerItem is one queued playback item, ordered by (priority, seq):
// lower priority numbers run first, and within a priority items are FIFO
// via a monotonically increasing sequence counter.
type playerItem struct {
	priority int
	seq      int64
	pcm      []byte
}

type playerQueue []*playerItem

func (q playerQueue) Len() int { return len(q) }
func (q playerQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q playerQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *playerQueue) Push(x any)        { *q = append(*q, x.(*playerItem)) }
func (q *playerQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// devicePlayer is the minimal local-audio-output boundary. No audio output
// device library exists to import, so local playback shells out to a
// platform audio player the same way the VoiceEngine's Dispatcher shells
// out to tmux/osascript/xdotool - a subprocess boundary, not a hand-rolled
// device driver.
type devicePlayer struct {
	available bool
	command   string
}

func newDevicePlayer() *devicePlayer {
	var cmd string
	switch runtime.GOOS {
	case "darwin":
		cmd = "afplay"
	case "linux":
		cmd = "paplay"
	default:
		return &devicePlayer{available: false}
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return &devicePlayer{available: false}
	}
	return &devicePlayer{available: true, command: cmd}
}

func (d *devicePlayer) play(pcm []byte, sampleRate int) error {
	if !d.available {
		return nil
	}
	wav := wrapWAV(pcm, sampleRate)

	if d.command == "afplay" {
		// afplay has no stdin mode; write to a scratch file instead.
		f, err := os.CreateTemp("", "echo-alert-*.wav")
		if err != nil {
			return err
		}
		defer os.Remove(f.Name())
		if _, err := f.Write(wav); err != nil {
			f.Close()
			return err
		}
		f.Close()
		return exec.Command(d.command, f.Name()).Run()
	}

	cmd := exec.Command(d.command)
	cmd.Stdin = bytesReader(wav)
	return cmd.Run()
}

// Player is the priority-queued audio player.
type Player struct {
	sampleRate       int
	backlogThreshold int
	device           *devicePlayer
	tones            *alertToneCache

	mu        sync.Mutex
	queue     playerQueue
	seq       int64
	interrupt atomic.Bool

	wake   chan struct{}
	stop   chan struct{}
	stopped chan struct{}
}

// NewPlayer constructs a Player with a four-entry alert tone cache
// generated at startup.
func NewPlayer(sampleRate, backlogThreshold int) *Player {
	p := &Player{
		sampleRate:       sampleRate,
		backlogThreshold: backlogThreshold,
		device:           newDevicePlayer(),
		tones:            newAlertToneCache(sampleRate),
		wake:             make(chan struct{}, 1),
		stop:             make(chan struct{}),
		stopped:          make(chan struct{}),
	}
	heap.Init(&p.queue)
	return p
}

// Start launches the playback worker.
func (p *Player) Start() {
	go p.worker()
}

// Stop halts the worker; items still in the queue are not played.
func (p *Player) Stop() {
	close(p.stop)
	<-p.stopped
}

// IsAvailable reports whether a local output device was detected at startup.
func (p *Player) IsAvailable() bool {
	return p.device.available
}

// Depth returns the number of items currently waiting in the queue.
func (p *Player) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Enqueue adds pcm to the playback queue at the given priority
// (0=critical, 1=normal, 2=low). LOW-priority items are dropped when the
// queue is already backlogged.
func (p *Player) Enqueue(pcm []byte, priority int) {
	if !p.device.available {
		return
	}
	if priority == 2 && p.Depth() > p.backlogThreshold {
		log.Printf("speaker: dropping LOW priority audio, backlog depth=%d", p.Depth())
		return
	}
	p.mu.Lock()
	p.seq++
	heap.Push(&p.queue, &playerItem{priority: priority, seq: p.seq, pcm: pcm})
	p.mu.Unlock()
	p.notify()
}

// Interrupt sets the interrupt flag, so that an item the worker has already
// dequeued but not yet started is skipped, and drains non-critical items
// from the queue (critical items are preserved). Playback already running
// on the device is not aborted; it plays to the end.
func (p *Player) Interrupt() {
	p.interrupt.Store(true)

	p.mu.Lock()
	var kept playerQueue
	for p.queue.Len() > 0 {
		item := heap.Pop(&p.queue).(*playerItem)
		if item.priority == 0 {
			kept = append(kept, item)
		}
	}
	for _, item := range kept {
		heap.Push(&p.queue, item)
	}
	p.mu.Unlock()
}

// PlayAlert plays the pre-computed tone for blockReason synchronously.
func (p *Player) PlayAlert(blockReason events.BlockReason, hasBlockReason bool) {
	if !p.device.available {
		return
	}
	tone := p.tones.get(blockReason, hasBlockReason)
	if err := p.device.play(tone, p.sampleRate); err != nil {
		log.Printf("speaker: alert tone playback failed: %v", err)
	}
}

// PlayImmediate plays pcm synchronously, bypassing the queue. Only used
// from critical paths.
func (p *Player) PlayImmediate(pcm []byte) {
	if !p.device.available {
		return
	}
	if err := p.device.play(pcm, p.sampleRate); err != nil {
		log.Printf("speaker: immediate playback failed: %v", err)
	}
}

func (p *Player) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Player) worker() {
	defer close(p.stopped)
	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
		}
		for {
			p.mu.Lock()
			if p.queue.Len() == 0 {
				p.mu.Unlock()
				break
			}
			item := heap.Pop(&p.queue).(*playerItem)
			p.interrupt.Store(false)
			p.mu.Unlock()

			if p.interrupt.Load() && item.priority > 0 {
				continue
			}

			select {
			case <-p.stop:
				return
			default:
			}
			if err := p.device.play(item.pcm, p.sampleRate); err != nil {
				log.Printf("speaker: playback failed: %v", err)
			}
		}
	}
}
