package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/liteagent/core"
)

// Recorder appends run records to a line-delimited JSON file. Writes go
// straight to the file descriptor, one line per record, so an interrupted
// process leaves at most one torn trailing line behind.
//
// A Recorder is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
}

// NewRecorder opens path for appending, creating parent directories as needed.
func NewRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	return &Recorder{file: file}, nil
}

// RecordMessage appends one committed history message.
func (r *Recorder) RecordMessage(msg core.Message) error {
	data, err := core.MarshalMessage(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	return r.writeLine(Record{Kind: KindMessage, Data: data})
}

// RecordChunk appends one streamed chunk.
func (r *Recorder) RecordChunk(chunk core.Chunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("encode chunk: %w", err)
	}

	return r.writeLine(Record{Kind: KindChunk, Type: chunk.Kind(), Data: data})
}

func (r *Recorder) writeLine(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return fmt.Errorf("transcript recorder is closed")
	}

	if _, err := r.file.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	return nil
}

// Close releases the underlying file. Subsequent writes fail; Close is
// idempotent.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil

	return err
}
