package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/hupe1980/liteagent/core"
)

// SaveHistory writes a whole-history snapshot as one JSON array. The file is
// replaced atomically (temp file + rename) so a concurrent reader never
// observes a partial snapshot.
func SaveHistory(path string, messages []core.Message) error {
	items := make([]json.RawMessage, 0, len(messages))
	for _, msg := range messages {
		data, err := core.MarshalMessage(msg)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		items = append(items, data)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

// LoadHistory reads a snapshot produced by SaveHistory. The result feeds
// straight into the runner's history replay.
func LoadHistory(path string) ([]core.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	messages := make([]core.Message, 0, len(items))
	for i, item := range items {
		msg, err := core.UnmarshalMessage(item)
		if err != nil {
			return nil, fmt.Errorf("decode history message %d: %w", i, err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
