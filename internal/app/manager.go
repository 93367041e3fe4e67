package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cueline/cueline/internal/observe"
	"github.com/cueline/cueline/internal/script/scriptstore"
	"github.com/cueline/cueline/internal/track"
	"github.com/cueline/cueline/pkg/provider/stt"
)

// ErrSessionNotFound is returned when no session with the requested ID exists.
var ErrSessionNotFound = errors.New("app: session not found")

// SessionInfo holds metadata about an active session.
type SessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID string `json:"session_id"`

	// ScriptID is the ID of the loaded script.
	ScriptID string `json:"script_id"`

	// StartedAt is when the session was created.
	StartedAt time.Time `json:"started_at"`
}

// ManagerConfig holds all dependencies for a [Manager].
type ManagerConfig struct {
	// Provider is the STT backend used for new sessions.
	Provider stt.Provider

	// Scripts is the store sessions load their script from.
	Scripts scriptstore.Store

	// Params configures the tracker for new sessions. Zero fields fall back
	// to defaults.
	Params track.Params

	// Stream is the audio stream configuration passed to the provider.
	Stream stt.StreamConfig

	// Metrics receives session instrumentation. When nil the package-level
	// default instance is used.
	Metrics *observe.Metrics
}

// Manager owns the lifecycle of all prompter sessions. Multiple sessions may
// run concurrently, each with its own script and STT stream. All exported
// methods are safe for concurrent use.
type Manager struct {
	provider stt.Provider
	scripts  scriptstore.Store
	stream   stt.StreamConfig
	metrics  *observe.Metrics

	mu       sync.Mutex
	params   track.Params
	sessions map[string]*Session
}

// NewManager creates a Manager with the given dependencies.
func NewManager(cfg ManagerConfig) *Manager {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Manager{
		provider: cfg.Provider,
		scripts:  cfg.Scripts,
		params:   cfg.Params,
		stream:   cfg.Stream,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session for the given script: the script is loaded from
// the store, a tracker is configured with its lines, and an STT stream is
// opened with the provider. ctx bounds only the script load and the stream
// dial; the session itself outlives it and runs until [Manager.Stop] or the
// end of its STT stream.
func (m *Manager) Create(ctx context.Context, scriptID string) (*Session, error) {
	def, err := m.scripts.Get(ctx, scriptID)
	if err != nil {
		return nil, fmt.Errorf("app: load script %q: %w", scriptID, err)
	}

	handle, err := m.provider.StartStream(ctx, m.stream)
	if err != nil {
		return nil, fmt.Errorf("app: start stt stream: %w", err)
	}

	m.mu.Lock()
	params := m.params
	m.mu.Unlock()

	id := uuid.NewString()
	sess := newSession(id, def.ID, def.Lines, params, handle, m.metrics)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	slog.Info("session created",
		"session_id", id,
		"script_id", def.ID,
		"script_title", def.Title,
		"lines", len(def.Lines),
	)
	return sess, nil
}

// SetParams replaces the tracker tuning used for sessions created from now
// on. Running sessions keep the parameters they were started with.
func (m *Manager) SetParams(params track.Params) {
	m.mu.Lock()
	m.params = params
	m.mu.Unlock()
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Stop closes the session with the given ID and removes it from the manager.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return sess.Close()
}

// StopAll closes every active session. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Close(); err != nil {
			slog.Warn("session close error", "session_id", sess.ID(), "err", err)
		}
	}
}

// List returns metadata for all active sessions.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, SessionInfo{
			SessionID: sess.ID(),
			ScriptID:  sess.ScriptID(),
			StartedAt: sess.StartedAt(),
		})
	}
	return infos
}
