// Package poller runs the periodic recognition cycle: on every tick it
// snapshots the current frame, submits it for recognition and reports the
// outcome. Ticks carry a monotonically increasing sequence number; a response
// older than the last delivered one is discarded.
package poller

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/kozaktomas/facecam/internal/constants"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/imaging"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// ErrAlreadyActive is returned by Begin when a cycle is already running.
var ErrAlreadyActive = errors.New("poller already active")

// FrameSource supplies frames to recognize.
type FrameSource interface {
	Ready() bool
	CurrentFrame() (*image.RGBA, error)
}

// Recognizer submits an encoded frame for recognition.
type Recognizer interface {
	Recognize(ctx context.Context, jpegData []byte) (*recognizer.RecognizeResponse, error)
}

// Result is one completed recognition tick.
type Result struct {
	Gen    uint64
	Seq    uint64
	Faces  []recognizer.Face
	People []recognizer.DetectedPerson
	Source geometry.Size // size of the frame that was submitted
	At     time.Time
}

// TickError is a failed recognition tick.
type TickError struct {
	Gen uint64
	Seq uint64
	Err error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %v", e.Seq, e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }

// Stats are cumulative counters across all cycles.
type Stats struct {
	Active   bool          `json:"active"`
	Interval time.Duration `json:"interval"`
	Ticks    uint64        `json:"ticks"`
	Skipped  uint64        `json:"skipped"`
	Requests uint64        `json:"requests"`
	Results  uint64        `json:"results"`
	Errors   uint64        `json:"errors"`
	Stale    uint64        `json:"stale"`   // completed after a newer tick was delivered
	Dropped  uint64        `json:"dropped"` // completed after the cycle ended
	LastSeq  uint64        `json:"last_seq"`
}

// Options configures a Poller.
type Options struct {
	JPEGQuality int
	Logger      *slog.Logger
}

// Poller is a cancellable repeating recognition task. At most one cycle runs
// at a time.
type Poller struct {
	source  FrameSource
	rec     Recognizer
	quality int
	logger  *slog.Logger

	mu        sync.Mutex
	active    bool
	gen       uint64
	cancel    context.CancelFunc
	interval  time.Duration
	seq       uint64
	delivered uint64
	stats     Stats

	wg sync.WaitGroup
}

// New creates an idle poller.
func New(source FrameSource, rec Recognizer, opts Options) *Poller {
	quality := opts.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = constants.DefaultPollJPEGQuality
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:  source,
		rec:     rec,
		quality: quality,
		logger:  logger,
	}
}

// Begin starts a repeating cycle with the given interval (1s when zero). The
// first tick fires one interval after Begin.
func (p *Poller) Begin(onResult func(Result), onError func(error), interval time.Duration) error {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return ErrAlreadyActive
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.active = true
	p.gen++
	p.cancel = cancel
	p.interval = interval

	p.wg.Add(1)
	go p.loop(ctx, p.gen, interval, onResult, onError)

	p.logger.Debug("poller started", "gen", p.gen, "interval", interval)
	return nil
}

// End cancels the cycle and any in-flight request. Responses of the ended
// cycle are dropped; a callback that already passed its check when End ran
// can be detected with Current. Safe to call when not active.
func (p *Poller) End() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return
	}
	p.active = false
	p.gen++
	p.cancel()
	p.cancel = nil
	p.logger.Debug("poller stopped", "gen", p.gen)
}

// Wait blocks until the goroutines of ended cycles have exited.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Active reports whether a cycle is running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Current reports whether gen is the generation of the running cycle.
// Receivers use it to drop callbacks that raced End.
func (p *Poller) Current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active && p.gen == gen
}

// Stats returns the counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Active = p.active
	s.Interval = p.interval
	s.LastSeq = p.delivered
	return s
}

func (p *Poller) loop(ctx context.Context, gen uint64, interval time.Duration, onResult func(Result), onError func(error)) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, gen, onResult, onError)
		}
	}
}

// tick snapshots and submits one frame. The request runs on its own
// goroutine so a slow response does not delay the next tick.
func (p *Poller) tick(ctx context.Context, gen uint64, onResult func(Result), onError func(error)) {
	p.mu.Lock()
	p.stats.Ticks++
	p.mu.Unlock()

	if !p.source.Ready() {
		p.skip("frame not ready")
		return
	}
	frame, err := p.source.CurrentFrame()
	if err != nil {
		p.skip(err.Error())
		return
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.seq++
	seq := p.seq
	p.stats.Requests++
	p.mu.Unlock()

	source := geometry.SizeOf(frame.Bounds())
	data, err := imaging.EncodeJPEG(frame, p.quality)
	if err != nil {
		p.deliverError(gen, seq, fmt.Errorf("could not encode frame: %w", err), onError)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		resp, err := p.rec.Recognize(ctx, data)
		if err != nil {
			p.deliverError(gen, seq, err, onError)
			return
		}
		p.deliverResult(Result{
			Gen:    gen,
			Seq:    seq,
			Faces:  resp.Faces,
			People: resp.DetectedPeople,
			Source: source,
			At:     time.Now(),
		}, onResult)
	}()
}

func (p *Poller) skip(reason string) {
	p.mu.Lock()
	p.stats.Skipped++
	p.mu.Unlock()
	p.logger.Debug("tick skipped", "reason", reason)
}

// accept decides whether a completed tick may be delivered, advancing the
// delivered sequence when it is.
func (p *Poller) accept(gen, seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || p.gen != gen {
		p.stats.Dropped++
		return false
	}
	if seq <= p.delivered {
		p.stats.Stale++
		p.logger.Debug("stale response discarded", "seq", seq, "delivered", p.delivered)
		return false
	}
	p.delivered = seq
	return true
}

func (p *Poller) deliverResult(res Result, onResult func(Result)) {
	if !p.accept(res.Gen, res.Seq) {
		return
	}
	p.mu.Lock()
	p.stats.Results++
	p.mu.Unlock()

	if onResult != nil {
		onResult(res)
	}
}

func (p *Poller) deliverError(gen, seq uint64, err error, onError func(error)) {
	if !p.accept(gen, seq) {
		return
	}
	p.mu.Lock()
	p.stats.Errors++
	p.mu.Unlock()

	p.logger.Warn("recognition tick failed", "seq", seq, "error", err)
	if onError != nil {
		onError(&TickError{Gen: gen, Seq: seq, Err: err})
	}
}
