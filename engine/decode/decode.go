// Package decode turns a raw response byte stream into typed chunks.
// Two framings are supported: newline-delimited JSON, and Server-Sent
// Events where only "data:" lines carry a JSON payload.
package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/types"
)

// Framing selects how payload lines are recognized.
type Framing int

const (
	NDJSON Framing = iota
	SSE
)

const ssePrefix = "data:"

var (
	// ErrNoPayload is returned for lines that carry no chunk (blank lines,
	// SSE comments and non-data fields).
	ErrNoPayload = errors.New("decode: no payload")

	// ErrUnknownType is returned for JSON values without a known chunk type.
	ErrUnknownType = errors.New("decode: unknown chunk type")
)

var knownTypes = map[types.ChunkType]bool{
	types.ChunkInit:        true,
	types.ChunkMessage:     true,
	types.ChunkDiceRoll:    true,
	types.ChunkState:       true,
	types.ChunkSuggestions: true,
	types.ChunkLogicEvent:  true,
	types.ChunkSettlement:  true,
	types.ChunkInitContext: true,
}

// Decoder accumulates bytes across reads and yields one chunk per complete
// line. A trailing partial line is kept until more bytes arrive.
type Decoder struct {
	framing Framing
	log     *zap.Logger
	buf     []byte
}

// New creates a decoder. A nil logger discards decode warnings.
func New(framing Framing, log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{framing: framing, log: log}
}

// Feed appends p to the buffer and returns the chunks decoded from every
// complete line. Lines that fail to decode are logged and skipped.
func (d *Decoder) Feed(p []byte) []types.Chunk {
	d.buf = append(d.buf, p...)

	var out []types.Chunk
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		if c, ok := d.decode(line); ok {
			out = append(out, c)
		}
		d.buf = d.buf[i+1:]
	}

	// Compact so the retained partial line does not pin a large array.
	if len(d.buf) == 0 {
		d.buf = nil
	} else {
		d.buf = append([]byte(nil), d.buf...)
	}
	return out
}

// Flush decodes whatever remains in the buffer as a final line.
func (d *Decoder) Flush() []types.Chunk {
	line := d.buf
	d.buf = nil
	if c, ok := d.decode(line); ok {
		return []types.Chunk{c}
	}
	return nil
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Stream reads r until EOF, calling emit for each decoded chunk in order.
// It returns nil when the stream ends normally.
func (d *Decoder) Stream(ctx context.Context, r io.Reader, emit func(types.Chunk)) error {
	p := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(p)
		if n > 0 {
			for _, c := range d.Feed(p[:n]) {
				emit(c)
			}
		}
		if errors.Is(err, io.EOF) {
			for _, c := range d.Flush() {
				emit(c)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}
	}
}

func (d *Decoder) decode(line []byte) (types.Chunk, bool) {
	c, err := d.DecodeLine(line)
	if err == nil {
		return c, true
	}
	if !errors.Is(err, ErrNoPayload) {
		d.log.Warn("skipping undecodable line",
			zap.String("line", string(line)),
			zap.Error(err),
		)
	}
	return types.Chunk{}, false
}

// DecodeLine decodes a single line according to the decoder's framing.
func (d *Decoder) DecodeLine(line []byte) (types.Chunk, error) {
	line = bytes.TrimSpace(line)
	if d.framing == SSE {
		if !bytes.HasPrefix(line, []byte(ssePrefix)) {
			return types.Chunk{}, ErrNoPayload
		}
		line = bytes.TrimSpace(line[len(ssePrefix):])
	}
	if len(line) == 0 {
		return types.Chunk{}, ErrNoPayload
	}
	return Unmarshal(line)
}

// Unmarshal decodes one JSON chunk value.
func Unmarshal(data []byte) (types.Chunk, error) {
	var c types.Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return types.Chunk{}, fmt.Errorf("decode: %w", err)
	}
	if !knownTypes[c.Type] {
		return types.Chunk{}, fmt.Errorf("%w: %q", ErrUnknownType, c.Type)
	}
	return c, nil
}
