package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/liteagent/core"
)

// Record kinds.
const (
	KindMessage = "message"
	KindChunk   = "chunk"
)

// Record is one transcript line: a committed history message or a streamed
// chunk, wrapped in a kind envelope. Messages self-describe through their
// role/type fields; chunk payloads additionally carry the variant in Type.
type Record struct {
	Kind string          `json:"kind"`
	Type core.ChunkType  `json:"type,omitempty"` // chunk variant, set for chunk records
	Data json.RawMessage `json:"data"`
}

// Message decodes a message record.
func (r Record) Message() (core.Message, error) {
	if r.Kind != KindMessage {
		return nil, fmt.Errorf("record is %q, not a message", r.Kind)
	}
	return core.UnmarshalMessage(r.Data)
}

// Chunk decodes a chunk record.
func (r Record) Chunk() (core.Chunk, error) {
	if r.Kind != KindChunk {
		return nil, fmt.Errorf("record is %q, not a chunk", r.Kind)
	}
	return core.UnmarshalChunk(r.Type, r.Data)
}
