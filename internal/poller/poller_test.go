package poller

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kozaktomas/facecam/internal/camera"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

const testInterval = 10 * time.Millisecond

type fakeSource struct {
	mu    sync.Mutex
	frame *image.RGBA
}

func (s *fakeSource) set(frame *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
}

func (s *fakeSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame != nil
}

func (s *fakeSource) CurrentFrame() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, camera.ErrNotReady
	}
	return s.frame, nil
}

func readySource() *fakeSource {
	return &fakeSource{frame: image.NewRGBA(image.Rect(0, 0, 64, 48))}
}

// fakeRecognizer answers each call with fn(call number).
type fakeRecognizer struct {
	calls atomic.Int64
	fn    func(ctx context.Context, call int64) (*recognizer.RecognizeResponse, error)
}

func (r *fakeRecognizer) Recognize(ctx context.Context, _ []byte) (*recognizer.RecognizeResponse, error) {
	n := r.calls.Add(1)
	return r.fn(ctx, n)
}

func aliceResponse() *recognizer.RecognizeResponse {
	return &recognizer.RecognizeResponse{
		Success: true,
		Faces: []recognizer.Face{{
			Location: geometry.Location{Left: 10, Top: 20, Right: 110, Bottom: 220},
			Name:     "Alice",
		}},
		DetectedPeople: []recognizer.DetectedPerson{{Info: recognizer.PersonRecord{FullName: "Alice"}}},
	}
}

func newTestPoller(t *testing.T, source FrameSource, rec Recognizer) *Poller {
	t.Helper()
	p := New(source, rec, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(func() {
		p.End()
		p.Wait()
	})
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPoller_DeliversResults(t *testing.T) {
	rec := &fakeRecognizer{fn: func(context.Context, int64) (*recognizer.RecognizeResponse, error) {
		return aliceResponse(), nil
	}}
	p := newTestPoller(t, readySource(), rec)

	results := make(chan Result, 100)
	if err := p.Begin(func(r Result) { results <- r }, nil, testInterval); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	select {
	case r := <-results:
		if len(r.Faces) != 1 || r.Faces[0].Name != "Alice" {
			t.Errorf("unexpected faces: %+v", r.Faces)
		}
		if r.Source != (geometry.Size{Width: 64, Height: 48}) {
			t.Errorf("unexpected source size %v", r.Source)
		}
		if r.Seq == 0 || !p.Current(r.Gen) {
			t.Errorf("unexpected seq/gen: %d/%d", r.Seq, r.Gen)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
}

func TestPoller_SkipsWhenNotReady(t *testing.T) {
	rec := &fakeRecognizer{fn: func(context.Context, int64) (*recognizer.RecognizeResponse, error) {
		return aliceResponse(), nil
	}}
	source := &fakeSource{}
	p := newTestPoller(t, source, rec)

	if err := p.Begin(nil, nil, testInterval); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "skipped ticks", func() bool { return p.Stats().Skipped >= 3 })

	if rec.calls.Load() != 0 {
		t.Errorf("expected no requests while not ready, got %d", rec.calls.Load())
	}

	source.set(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	waitFor(t, "first request", func() bool { return rec.calls.Load() > 0 })
}

func TestPoller_AlreadyActive(t *testing.T) {
	rec := &fakeRecognizer{fn: func(context.Context, int64) (*recognizer.RecognizeResponse, error) {
		return aliceResponse(), nil
	}}
	p := newTestPoller(t, readySource(), rec)

	if err := p.Begin(nil, nil, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := p.Begin(nil, nil, time.Hour); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("expected ErrAlreadyActive, got %v", err)
	}

	p.End()
	p.End() // idempotent
	if p.Active() {
		t.Error("expected inactive after End")
	}
	if err := p.Begin(nil, nil, time.Hour); err != nil {
		t.Errorf("Begin after End failed: %v", err)
	}
}

func TestPoller_EndDropsInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	rec := &fakeRecognizer{fn: func(ctx context.Context, call int64) (*recognizer.RecognizeResponse, error) {
		if call == 1 {
			started <- struct{}{}
			<-release
			return aliceResponse(), nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := newTestPoller(t, readySource(), rec)

	var delivered atomic.Int64
	onResult := func(Result) { delivered.Add(1) }
	onError := func(error) { delivered.Add(1) }
	if err := p.Begin(onResult, onError, testInterval); err != nil {
		t.Fatal(err)
	}

	<-started
	p.End()
	close(release)
	p.Wait()

	if delivered.Load() != 0 {
		t.Errorf("expected no callbacks after End, got %d", delivered.Load())
	}
	if p.Stats().Dropped == 0 {
		t.Error("expected the in-flight response to be counted as dropped")
	}

	calls := rec.calls.Load()
	time.Sleep(5 * testInterval)
	if rec.calls.Load() != calls {
		t.Error("expected no ticks after End")
	}
}

func TestPoller_DiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	rec := &fakeRecognizer{fn: func(ctx context.Context, call int64) (*recognizer.RecognizeResponse, error) {
		if call == 1 {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return aliceResponse(), nil
	}}
	p := newTestPoller(t, readySource(), rec)

	var mu sync.Mutex
	var seqs []uint64
	onResult := func(r Result) {
		mu.Lock()
		seqs = append(seqs, r.Seq)
		mu.Unlock()
	}
	if err := p.Begin(onResult, nil, testInterval); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "a newer result", func() bool { return p.Stats().Results >= 1 })
	close(release)
	waitFor(t, "stale discard", func() bool { return p.Stats().Stale >= 1 })

	mu.Lock()
	defer mu.Unlock()
	for i, seq := range seqs {
		if seq == 1 {
			t.Errorf("tick 1 result delivered after newer tick")
		}
		if i > 0 && seq <= seqs[i-1] {
			t.Errorf("results out of order: %v", seqs)
		}
	}
}

func TestPoller_ReportsErrors(t *testing.T) {
	serviceErr := &recognizer.ServiceError{Endpoint: recognizer.EndpointRecognize, Message: "model not trained"}
	rec := &fakeRecognizer{fn: func(context.Context, int64) (*recognizer.RecognizeResponse, error) {
		return nil, serviceErr
	}}
	p := newTestPoller(t, readySource(), rec)

	errs := make(chan error, 100)
	if err := p.Begin(nil, func(err error) { errs <- err }, testInterval); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		var te *TickError
		if !errors.As(err, &te) {
			t.Fatalf("expected TickError, got %T", err)
		}
		if !errors.Is(err, serviceErr) {
			t.Errorf("expected service error in chain, got %v", err)
		}
		if !recognizer.IsServiceError(err) {
			t.Error("expected IsServiceError to see through TickError")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
	if p.Stats().Errors == 0 {
		t.Error("expected error counter to advance")
	}
}

func TestPoller_DefaultInterval(t *testing.T) {
	rec := &fakeRecognizer{fn: func(context.Context, int64) (*recognizer.RecognizeResponse, error) {
		return aliceResponse(), nil
	}}
	p := newTestPoller(t, readySource(), rec)

	if err := p.Begin(nil, nil, 0); err != nil {
		t.Fatal(err)
	}
	if got := p.Stats().Interval; got != time.Second {
		t.Errorf("expected 1s default interval, got %v", got)
	}
}
