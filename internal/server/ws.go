package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cueline/cueline/internal/app"
)

// feedCommand is a navigation command received over the position feed socket.
type feedCommand struct {
	// Type is "jump" or "reset".
	Type string `json:"type"`

	// Line is the target line index for "jump" commands.
	Line int `json:"line"`
}

// handleSessionFeed upgrades to a WebSocket and streams [app.PositionEvent]
// values as JSON text messages. The client may send feedCommand messages on
// the same socket to navigate.
func (s *Server) handleSessionFeed(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("feed: websocket accept failed", "session_id", sess.ID(), "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "feed closed")

	ctx := r.Context()
	events, cancel := sess.Subscribe(ctx)
	defer cancel()

	// Send the current position first so a client that connects mid-session
	// can render immediately instead of waiting for the next update.
	initial, err := sess.Event(ctx)
	if err != nil {
		conn.Close(websocket.StatusNormalClosure, "session ended")
		return
	}
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		return
	}

	// Reader: navigation commands.
	readErr := make(chan error, 1)
	go func() {
		for {
			var cmd feedCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				readErr <- err
				return
			}
			if err := s.applyCommand(ctx, sess, cmd); err != nil {
				readErr <- err
				return
			}
		}
	}()

	// Writer: position events.
	for {
		select {
		case ev, open := <-events:
			if !open {
				conn.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		case err := <-readErr:
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			slog.Debug("feed: read loop ended", "session_id", sess.ID(), "err", err)
			return
		case <-ctx.Done():
			return
		}
	}
}

// applyCommand executes a navigation command against the session.
func (s *Server) applyCommand(ctx context.Context, sess *app.Session, cmd feedCommand) error {
	switch cmd.Type {
	case "jump":
		_, err := sess.JumpToLine(ctx, cmd.Line)
		return err
	case "reset":
		_, err := sess.Reset(ctx)
		return err
	default:
		return errors.New("server: unknown feed command type " + cmd.Type)
	}
}

// handleSessionAudio upgrades to a WebSocket and forwards binary PCM frames
// to the session's STT stream. Text frames are ignored.
func (s *Server) handleSessionAudio(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("audio: websocket accept failed", "session_id", sess.ID(), "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "audio closed")

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := sess.SendAudio(data); err != nil {
			if errors.Is(err, app.ErrSessionClosed) {
				conn.Close(websocket.StatusNormalClosure, "session ended")
			} else {
				slog.Warn("audio: forward failed", "session_id", sess.ID(), "err", err)
			}
			return
		}
	}
}
