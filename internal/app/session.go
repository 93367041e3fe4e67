// Package app wires scripts, the alignment tracker, and STT providers into
// live prompter sessions.
//
// Each [Session] owns one tracker and one STT stream. All tracker access is
// funneled through a single goroutine: transcript snapshots arriving from the
// provider and navigation commands from operators are processed one at a time,
// so the tracker itself needs no locking. Position changes are fanned out to
// subscribers over buffered channels; a slow subscriber drops events rather
// than stalling the session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cueline/cueline/internal/observe"
	"github.com/cueline/cueline/internal/track"
	"github.com/cueline/cueline/pkg/provider/stt"
)

// subscriberBuffer is the per-subscriber event channel capacity. When full,
// new events for that subscriber are dropped.
const subscriberBuffer = 16

// ErrSessionClosed is returned by session operations after Close.
var ErrSessionClosed = errors.New("app: session is closed")

// PositionEvent describes a reading-position change in a session. It is
// delivered to every subscriber after each transcript update or navigation
// command.
type PositionEvent struct {
	SessionID string         `json:"session_id"`
	Position  track.Position `json:"position"`
	LineText  string         `json:"line_text"`
	Progress  float64        `json:"progress"`
}

// Session is a live prompter session: one script, one tracker, one STT
// stream. All exported methods are safe for concurrent use.
type Session struct {
	id       string
	scriptID string
	started  time.Time

	tracker *track.Tracker
	handle  stt.SessionHandle
	metrics *observe.Metrics

	commands chan func()
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]chan PositionEvent
	nextSub int
}

// newSession builds the session and starts its run loop. The session takes
// ownership of handle and closes it on Close. A session's lifetime is bound
// to Close and the STT stream, never to the context of the request that
// created it.
func newSession(id, scriptID string, lines []string, params track.Params, handle stt.SessionHandle, metrics *observe.Metrics) *Session {
	tr := track.New(params)
	tr.Configure(lines)

	s := &Session{
		id:       id,
		scriptID: scriptID,
		started:  time.Now().UTC(),
		tracker:  tr,
		handle:   handle,
		metrics:  metrics,
		commands: make(chan func()),
		done:     make(chan struct{}),
		subs:     make(map[int]chan PositionEvent),
	}

	s.metrics.ActiveSessions.Add(context.Background(), 1)
	s.wg.Add(1)
	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ScriptID returns the ID of the script loaded in this session.
func (s *Session) ScriptID() string { return s.scriptID }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.started }

// SendAudio forwards a PCM audio chunk to the STT provider.
func (s *Session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	return s.handle.SendAudio(chunk)
}

// Position returns the current reading position.
func (s *Session) Position(ctx context.Context) (track.Position, error) {
	return s.call(ctx, func() track.Position {
		return s.tracker.Position()
	})
}

// Event returns the current position as a full [PositionEvent], including
// line text and progress. Feed handlers use it to seed newly connected
// clients.
func (s *Session) Event(ctx context.Context) (PositionEvent, error) {
	reply := make(chan PositionEvent, 1)
	wrapped := func() { reply <- s.event(s.tracker.Position()) }

	select {
	case s.commands <- wrapped:
	case <-s.done:
		return PositionEvent{}, ErrSessionClosed
	case <-ctx.Done():
		return PositionEvent{}, fmt.Errorf("app: session command: %w", ctx.Err())
	}

	select {
	case ev := <-reply:
		return ev, nil
	case <-s.done:
		return PositionEvent{}, ErrSessionClosed
	case <-ctx.Done():
		return PositionEvent{}, fmt.Errorf("app: session command: %w", ctx.Err())
	}
}

// JumpToLine moves the reading position to the start of the given line,
// clamping out-of-range indexes, and notifies subscribers.
func (s *Session) JumpToLine(ctx context.Context, index int) (track.Position, error) {
	return s.call(ctx, func() track.Position {
		pos := s.tracker.JumpToLine(index)
		s.metrics.RecordLineJump(ctx, s.id, "manual")
		s.publish(pos)
		return pos
	})
}

// Reset clears the tracker's transcript history and returns the position to
// the start of the script. The loaded script is kept.
func (s *Session) Reset(ctx context.Context) (track.Position, error) {
	return s.call(ctx, func() track.Position {
		s.tracker.Reset()
		pos := s.tracker.Position()
		s.publish(pos)
		return pos
	})
}

// UpdateTranscript feeds a transcript snapshot directly into the tracker,
// bypassing the STT stream. Intended for text-input mode and tests.
func (s *Session) UpdateTranscript(ctx context.Context, text string) (track.Position, error) {
	return s.call(ctx, func() track.Position {
		return s.applySnapshot(ctx, stt.Snapshot{Text: text})
	})
}

// Subscribe registers a position-event listener. The returned channel is
// closed when the session ends. Call the returned cancel function to
// unsubscribe early.
func (s *Session) Subscribe(ctx context.Context) (<-chan PositionEvent, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	select {
	case <-s.done:
		ch := make(chan PositionEvent)
		close(ch)
		return ch, func() {}
	default:
	}

	id := s.nextSub
	s.nextSub++
	ch := make(chan PositionEvent, subscriberBuffer)
	s.subs[id] = ch
	s.metrics.ActiveSubscribers.Add(ctx, 1)

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
			s.metrics.ActiveSubscribers.Add(context.Background(), -1)
		}
	}
	return ch, cancel
}

// Close terminates the session: the STT stream is closed, the run loop
// drains, and all subscriber channels are closed. Safe to call repeatedly.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.done)
		_ = s.handle.Close()
		s.wg.Wait()
		s.closeSubs()
		s.metrics.ActiveSessions.Add(context.Background(), -1)
		slog.Info("session closed", "session_id", s.id)
	})
	return nil
}

// call schedules fn on the run loop and waits for its result.
func (s *Session) call(ctx context.Context, fn func() track.Position) (track.Position, error) {
	reply := make(chan track.Position, 1)
	wrapped := func() { reply <- fn() }

	select {
	case s.commands <- wrapped:
	case <-s.done:
		return track.Position{}, ErrSessionClosed
	case <-ctx.Done():
		return track.Position{}, fmt.Errorf("app: session command: %w", ctx.Err())
	}

	select {
	case pos := <-reply:
		return pos, nil
	case <-s.done:
		return track.Position{}, ErrSessionClosed
	case <-ctx.Done():
		return track.Position{}, fmt.Errorf("app: session command: %w", ctx.Err())
	}
}

// run is the single goroutine that owns the tracker. It multiplexes STT
// snapshots and operator commands until Close or the end of the STT stream.
func (s *Session) run() {
	defer s.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-s.done:
			return
		case fn := <-s.commands:
			fn()
		case snap, ok := <-s.handle.Snapshots():
			if !ok {
				// STT stream ended; tear the whole session down so
				// subscribers and pending callers unblock. Close waits for
				// this goroutine, so it must run elsewhere.
				slog.Info("stt stream ended, closing session", "session_id", s.id)
				go s.Close()
				return
			}
			s.applySnapshot(ctx, snap)
		}
	}
}

// applySnapshot runs one transcript snapshot through the tracker, records
// metrics, and publishes the resulting position. Must only be called from the
// run goroutine.
func (s *Session) applySnapshot(ctx context.Context, snap stt.Snapshot) track.Position {
	start := time.Now()
	prev := s.tracker.Position()
	pos := s.tracker.OnTranscriptUpdate(snap.Text)

	s.metrics.TrackerUpdateDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordTranscriptUpdate(ctx, s.id)
	if pos.Line != prev.Line {
		s.metrics.RecordLineJump(ctx, s.id, "detector")
	} else if pos.Char > prev.Char {
		s.metrics.RecordProgressAdvance(ctx, s.id)
	}

	if pos != prev {
		s.publish(pos)
	}
	return pos
}

// event builds a PositionEvent for pos. Must only be called from the run
// goroutine.
func (s *Session) event(pos track.Position) PositionEvent {
	return PositionEvent{
		SessionID: s.id,
		Position:  pos,
		LineText:  s.tracker.Script().Line(pos.Line).Text,
		Progress:  s.tracker.Progress(),
	}
}

// publish fans a position event out to all subscribers. Full subscriber
// channels drop the event.
func (s *Session) publish(pos track.Position) {
	ev := s.event(pos)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping position event for slow subscriber",
				"session_id", s.id, "subscriber", id)
		}
	}
}

// closeSubs closes all subscriber channels.
func (s *Session) closeSubs() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
		s.metrics.ActiveSubscribers.Add(context.Background(), -1)
	}
}
