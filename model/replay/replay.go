// Package replay captures model event streams to disk and plays them back,
// so runs against a live backend can be reproduced without one.
//
// A Recorder wraps any model and tees every raw event to a jsonl file, one
// line per event, written through immediately. A Player serves the same file
// as a model: each Stream call emits recorded events up to and including the
// turn's finish event, so a multi-turn recording replays turn by turn.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/liteagent/logging"
	"github.com/hupe1980/liteagent/model"
)

// Player streams previously recorded events from a jsonl file.
type Player struct {
	path string

	mu     sync.Mutex
	loaded bool
	events []model.Event
	cursor int
}

// NewPlayer creates a Player over the recording at path. The file is read on
// the first Stream call.
func NewPlayer(path string) *Player {
	return &Player{path: path}
}

// Stream implements model.Model by emitting the next recorded turn: every
// event up to and including the one carrying a finish reason. The request is
// ignored; the recording dictates the responses.
func (p *Player) Stream(ctx context.Context, _ model.Request) (<-chan model.Event, <-chan error) {
	eventCh := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	turn, err := p.nextTurn()

	go func() {
		defer close(eventCh)
		defer close(errCh)

		if err != nil {
			errCh <- err
			return
		}

		for _, ev := range turn {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- ev:
			}
		}
	}()

	return eventCh, errCh
}

// nextTurn advances the cursor past one recorded turn and returns its events.
func (p *Player) nextTurn() ([]model.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		events, err := ReadEvents(p.path)
		if err != nil {
			return nil, err
		}
		p.events = events
		p.loaded = true
	}

	if p.cursor >= len(p.events) {
		return nil, fmt.Errorf("recording exhausted at %s", p.path)
	}

	start := p.cursor
	for p.cursor < len(p.events) {
		ev := p.events[p.cursor]
		p.cursor++
		if ev.FinishReason != "" {
			break
		}
	}

	return p.events[start:p.cursor], nil
}

// Rewind resets playback to the start of the recording.
func (p *Player) Rewind() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cursor = 0
}

// Info implements model.Model.
func (p *Player) Info() model.Info {
	return model.Info{Name: "replay", Provider: "replay", SupportsTools: true}
}

// ReadEvents decodes every event line of a recording. A missing file is
// reported as an absent recording rather than a bare filesystem error.
func ReadEvents(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no recorded response found at %s", path)
		}
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var events []model.Event

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode recording line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return events, nil
}

// RecorderOptions configure a Recorder.
type RecorderOptions struct {
	// Logger receives diagnostics about failed recording writes. Defaults to
	// the NoOpLogger.
	Logger logging.Logger
}

// Recorder wraps a model and tees every streamed event to a jsonl file. The
// stream passes through untouched; write failures are logged and never
// interrupt the run.
type Recorder struct {
	inner  model.Model
	logger logging.Logger

	mu   sync.Mutex
	file *os.File
}

// NewRecorder opens path for appending, creating parent directories as
// needed, and returns a recording wrapper around inner.
func NewRecorder(inner model.Model, path string, optFns ...func(o *RecorderOptions)) (*Recorder, error) {
	opts := RecorderOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create recording directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}

	return &Recorder{inner: inner, logger: opts.Logger, file: file}, nil
}

// Stream implements model.Model. Events flow through from the wrapped model;
// each one is appended to the recording before it is forwarded.
func (r *Recorder) Stream(ctx context.Context, req model.Request) (<-chan model.Event, <-chan error) {
	eventCh := make(chan model.Event, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		events, errs := r.inner.Stream(ctx, req)
		for ev := range events {
			r.record(ev)

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case eventCh <- ev:
			}
		}
		if err := <-errs; err != nil {
			errCh <- err
		}
	}()

	return eventCh, errCh
}

func (r *Recorder) record(ev model.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("replay.record.encode_failed", "error", err.Error())
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.file.Write(append(data, '\n')); err != nil {
		r.logger.Warn("replay.record.write_failed", "error", err.Error())
	}
}

// Close releases the recording file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.file.Close()
}

// Info implements model.Model by delegating to the wrapped implementation.
func (r *Recorder) Info() model.Info { return r.inner.Info() }
