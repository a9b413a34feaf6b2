package recorder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/osclink/internal/protocol/codec"
)

var ErrBadEntry = errors.New("recorder: bad log entry")

// Sender sends one message. transport.Server implements it.
type Sender interface {
	Send(route string, values ...any) error
}

type PlaybackOptions struct {
	Loop bool
	// TimeStretch scales the recorded gaps; 2 plays at half speed. Zero
	// means 1.
	TimeStretch float64
}

// Entry is one recorded message.
type Entry struct {
	T       float64
	Session string
	Route   string
	Args    []any
}

// ReadEntries parses a recording. Blank lines are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if len(text) == 0 {
			continue
		}
		e, err := parseEntry(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadEntry, line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func parseEntry(text string) (Entry, error) {
	v, err := codec.DecodeJSON(text)
	if err != nil {
		return Entry{}, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return Entry{}, fmt.Errorf("want object, got %T", v)
	}
	var e Entry
	switch t := doc["t"].(type) {
	case float64:
		e.T = t
	case int64:
		e.T = float64(t)
	default:
		return Entry{}, fmt.Errorf("missing t")
	}
	if e.Route, ok = doc["route"].(string); !ok || e.Route == "" {
		return Entry{}, fmt.Errorf("missing route")
	}
	e.Session, _ = doc["session"].(string)
	switch args := doc["args"].(type) {
	case []any:
		e.Args = decodeValue(args).([]any)
	case nil:
		e.Args = []any{}
	default:
		return Entry{}, fmt.Errorf("args is %T", args)
	}
	return e, nil
}

// Playback sends the messages recorded in path through s, spaced as they
// were recorded. It returns when the file is exhausted (never with Loop) or
// ctx is done.
func Playback(ctx context.Context, path string, s Sender, opts PlaybackOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("recorder: open %s: %w", path, err)
	}
	entries, err := ReadEntries(f)
	f.Close()
	if err != nil {
		return err
	}
	return Play(ctx, entries, s, opts)
}

// Play is Playback over already parsed entries.
func Play(ctx context.Context, entries []Entry, s Sender, opts PlaybackOptions) error {
	if len(entries) == 0 {
		return nil
	}
	stretch := opts.TimeStretch
	if stretch <= 0 {
		stretch = 1
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		origin := entries[0].T
		start := time.Now()
		for _, e := range entries {
			due := start.Add(time.Duration((e.T - origin) * stretch * float64(time.Second)))
			if wait := time.Until(due); wait > 0 {
				timer.Reset(wait)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.Send(e.Route, e.Args...); err != nil {
				log.Warn().Err(err).Str("route", e.Route).Msg("playback send failed")
			}
		}
		if !opts.Loop {
			return nil
		}
	}
}
