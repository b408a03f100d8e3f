package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

// CurrentVersion is the envelope version written by every backend.
const CurrentVersion = 1

// ErrEmptyThreadID is returned when a store is called without a thread id.
var ErrEmptyThreadID = errors.New("checkpoint: empty thread id")

// Store is a closable checkpoint store.
type Store interface {
	core.CheckpointStore
	io.Closer
}

// Lister is implemented by stores that can enumerate their threads.
type Lister interface {
	Threads(ctx context.Context) ([]string, error)
}

// Deleter is implemented by stores that can drop a thread.
type Deleter interface {
	Delete(ctx context.Context, threadID string) error
}

// envelope is the persisted representation of one thread.
type envelope struct {
	Version  int           `json:"version"`
	Messages []wireMessage `json:"messages"`
}

// wireMessage stores tool-call arguments as JSON strings so the exact bytes
// the model produced survive the round trip. Marshaling a json.RawMessage in
// place would compact it.
type wireMessage struct {
	core.Message
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func toWire(msgs []core.Message) ([]wireMessage, error) {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i].Message = m
		out[i].Message.ToolCalls = nil
		for _, c := range m.ToolCalls {
			wc := wireToolCall{ID: c.ID, Name: c.Name}
			if len(c.Arguments) > 0 {
				quoted, err := json.Marshal(string(c.Arguments))
				if err != nil {
					return nil, err
				}
				wc.Arguments = quoted
			}
			out[i].ToolCalls = append(out[i].ToolCalls, wc)
		}
	}
	return out, nil
}

// fromWire accepts arguments stored either as a JSON string or, for
// envelopes written before arguments were quoted, as an inline JSON value.
func fromWire(wire []wireMessage) ([]core.Message, error) {
	out := make([]core.Message, len(wire))
	for i, w := range wire {
		out[i] = w.Message
		out[i].ToolCalls = nil
		for _, wc := range w.ToolCalls {
			c := core.ToolCall{ID: wc.ID, Name: wc.Name}
			if raw := bytes.TrimSpace(wc.Arguments); len(raw) > 0 {
				if raw[0] == '"' {
					var s string
					if err := json.Unmarshal(raw, &s); err != nil {
						return nil, err
					}
					c.Arguments = json.RawMessage(s)
				} else {
					c.Arguments = append(json.RawMessage(nil), raw...)
				}
			}
			out[i].ToolCalls = append(out[i].ToolCalls, c)
		}
	}
	return out, nil
}

// Encode serializes a history into the versioned envelope.
func Encode(msgs []core.Message) ([]byte, error) {
	if err := core.ValidateHistory(msgs); err != nil {
		return nil, err
	}
	wire, err := toWire(msgs)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode: %w", err)
	}
	b, err := json.Marshal(envelope{Version: CurrentVersion, Messages: wire})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: encode: %w", err)
	}
	return b, nil
}

// Decode parses an envelope, rejecting unknown versions.
func Decode(data []byte) ([]core.Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	if env.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", core.ErrCheckpointVersion, env.Version)
	}
	msgs, err := fromWire(env.Messages)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decode: %w", err)
	}
	if err := core.ValidateHistory(msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func checkThreadID(threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return ErrEmptyThreadID
	}
	return nil
}
