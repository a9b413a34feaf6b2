// Package recorder writes inbound messages to a line-oriented log and plays
// such logs back with their original timing.
//
// Each line is one JSON object:
//
//	{"t":1.25,"session":"<uuid>","route":"/synth/gain","args":[0.5]}
//
// t is seconds since recording started, not counting paused time. Floats
// JSON cannot carry (NaN, +Inf, -Inf) are written as {"$float":"NaN"}.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrNotRecording = errors.New("recorder: not recording")

// Recorder implements transport.Tap.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	out       zerolog.Logger
	path      string
	session   string
	started   time.Time
	pausedAt  time.Time
	paused    time.Duration
	recording bool
	isPaused  bool

	now func() time.Time
}

func New() *Recorder {
	return &Recorder{now: time.Now}
}

// DefaultPath names a recording after the current time.
func DefaultPath(now time.Time) string {
	return "osclink_" + now.Format("2006-01-02_15-04-05") + ".log"
}

// Start opens path for appending and begins a new session. An empty path
// uses DefaultPath. A running recording is stopped first.
func (r *Recorder) Start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		r.closeLocked()
	}
	now := r.now()
	if path == "" {
		path = DefaultPath(now)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open %s: %w", path, err)
	}
	r.file = f
	r.out = zerolog.New(f)
	r.path = path
	r.session = uuid.NewString()
	r.started = now
	r.paused = 0
	r.isPaused = false
	r.recording = true
	log.Info().Str("path", path).Str("session", r.session).Msg("recording started")
	return nil
}

// Pause keeps the file open but drops messages until Resume.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || r.isPaused {
		return
	}
	r.pausedAt = r.now()
	r.isPaused = true
}

// Resume continues a paused recording. Paused time is excluded from t.
func (r *Recorder) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || !r.isPaused {
		return
	}
	r.paused += r.now().Sub(r.pausedAt)
	r.isPaused = false
}

// Stop ends the session and closes the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	r.recording = false
	r.isPaused = false
	err := r.file.Close()
	r.file = nil
	log.Info().Str("path", r.path).Str("session", r.session).Msg("recording stopped")
	return err
}

// Recording reports whether messages are currently written.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording && !r.isPaused
}

// Path is the file of the current or last recording.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Session is the id of the current or last recording.
func (r *Recorder) Session() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Record writes one message when recording.
func (r *Recorder) Record(route string, values []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording || r.isPaused {
		return
	}
	elapsed := r.now().Sub(r.started) - r.paused
	if values == nil {
		values = []any{}
	}
	r.out.Log().
		Float64("t", elapsed.Seconds()).
		Str("session", r.session).
		Str("route", route).
		Interface("args", encodeValue(values)).
		Send()
}

const floatKey = "$float"

// encodeValue replaces non-finite floats with a floatKey marker, copying
// only the containers that hold one.
func encodeValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return map[string]any{floatKey: strconv.FormatFloat(x, 'g', -1, 64)}
		}
	case float32:
		return encodeValue(float64(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = encodeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = encodeValue(item)
		}
		return out
	}
	return v
}

// decodeValue restores what encodeValue wrote.
func decodeValue(v any) any {
	switch x := v.(type) {
	case []any:
		for i, item := range x {
			x[i] = decodeValue(item)
		}
	case map[string]any:
		if len(x) == 1 {
			if s, ok := x[floatKey].(string); ok {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					return f
				}
			}
		}
		for k, item := range x {
			x[k] = decodeValue(item)
		}
	}
	return v
}
