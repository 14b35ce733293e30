// Package monitor follows a board's telemetry stream and keeps the
// latest picture of its display, keys and faults.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"segpad/host/serial"
	"segpad/protocol"
	"segpad/segment"
)

// KeyHistory bounds the remembered key presses
const KeyHistory = 32

// State is what the host knows about the board
type State struct {
	Identity *protocol.IdentifyReport `json:"identity,omitempty"`
	Display  string                   `json:"display"`
	Codes    []segment.Code           `json:"-"`
	Keys     string                   `json:"keys"`
	Warnings []string                 `json:"warnings,omitempty"`
	Stats    *protocol.StatsReport    `json:"stats,omitempty"`
	Link     protocol.DecoderStats    `json:"link"`
	Updated  time.Time                `json:"updated"`
}

// Monitor decodes reports from a port
type Monitor struct {
	reader *protocol.Reader
	log    *slog.Logger

	mu    sync.Mutex
	state State
}

// New follows port
func New(port io.ReadCloser, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		reader: protocol.NewReader(port),
		log:    log,
	}
}

// Connect opens a serial port and follows it
func Connect(cfg *serial.Config, log *slog.Logger) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return New(port, log), nil
}

// Run applies reports until ctx is done or the port closes. fn, when not
// nil, sees every report after it was applied.
func (m *Monitor) Run(ctx context.Context, fn func(protocol.Report)) error {
	reports := m.reader.Reports()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-reports:
			if !ok {
				return io.EOF
			}
			m.Apply(r)
			if fn != nil {
				fn(r)
			}
		}
	}
}

// Apply folds one report into the state and logs it
func (m *Monitor) Apply(r protocol.Report) {
	link, invalid := m.reader.Stats()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Link = link
	m.state.Updated = time.Now()

	switch r := r.(type) {
	case protocol.IdentifyReport:
		m.state.Identity = &r
		m.log.Info("board identified",
			"version", r.Version,
			"exercise", r.Exercise,
			"digits", r.Digits,
			"keypad", fmt.Sprintf("%dx%d", r.Rows, r.Cols),
		)

	case protocol.KeyReport:
		m.state.Keys += string(r.Symbol)
		if n := len(m.state.Keys); n > KeyHistory {
			m.state.Keys = m.state.Keys[n-KeyHistory:]
		}
		m.log.Info("key", "symbol", string(r.Symbol), "row", r.Row, "col", r.Col, "at", r.At)

	case protocol.DisplayReport:
		m.state.Codes = r.Codes
		m.state.Display = segment.Render(r.Codes)
		m.log.Debug("display", "text", m.state.Display)

	case protocol.WarningReport:
		text := r.String()
		m.state.Warnings = append(m.state.Warnings, text)
		m.log.Warn("board warning", "warning", text)

	case protocol.StatsReport:
		m.state.Stats = &r
		m.log.Debug("stats",
			"frames", r.Frames,
			"accepted", r.Accepted,
			"bounced", r.Bounced,
			"dropped", r.Dropped,
			"invalid", invalid,
		)
	}
}

// State returns a copy of the current state
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.state
	s.Codes = append([]segment.Code(nil), m.state.Codes...)
	s.Warnings = append([]string(nil), m.state.Warnings...)
	return s
}

// JSON encodes the current state
func (m *Monitor) JSON() ([]byte, error) {
	return json.Marshal(m.State())
}

// Close stops reading and closes the port
func (m *Monitor) Close() error {
	return m.reader.Close()
}
