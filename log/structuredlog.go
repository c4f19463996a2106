package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// StructuredLog is a machine-readable record emitted alongside the human log stream, e.g.
// the per-rule statistics of a finished pass.
type StructuredLog struct {
	Time     time.Time       `json:"time"`
	Sender   string          `json:"sender_id"`
	MsgType  string          `json:"msg_type"`
	MsgJSON  json.RawMessage `json:"json_encoded"`
	Metadata *string         `json:"metadata,omitempty"`
	Elapsed  uint32          `json:"elapsed,omitempty"`
}

var fieldOrder = []string{"time", "sender_id", "msg_type", "json_encoded", "metadata", "elapsed"}

// Custom JSON marshaling to preserve field order and omit zero/empty values.
func (l StructuredLog) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	writeField := func(key string, val []byte) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(buf, `"%s":`, key)
		buf.Write(val)
	}
	for _, f := range fieldOrder {
		switch f {
		case "time":
			b, _ := json.Marshal(l.Time)
			writeField(f, b)
		case "sender_id":
			b, _ := json.Marshal(l.Sender)
			writeField(f, b)
		case "msg_type":
			b, _ := json.Marshal(l.MsgType)
			writeField(f, b)
		case "json_encoded":
			if len(l.MsgJSON) == 0 {
				writeField(f, []byte("null"))
			} else {
				writeField(f, l.MsgJSON)
			}
		case "metadata":
			if l.Metadata != nil {
				b, _ := json.Marshal(*l.Metadata)
				writeField(f, b)
			}
		case "elapsed":
			if l.Elapsed != 0 {
				b, _ := json.Marshal(l.Elapsed)
				writeField(f, b)
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewStructuredLog wraps msg in a StructuredLog stamped with the current time.
func NewStructuredLog(sender, msgType string, msg interface{}, elapsed time.Duration) (StructuredLog, error) {
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return StructuredLog{}, fmt.Errorf("marshal %s: %w", msgType, err)
	}
	return StructuredLog{
		Time:    time.Now().UTC(),
		Sender:  sender,
		MsgType: msgType,
		MsgJSON: msgJSON,
		Elapsed: uint32(elapsed.Milliseconds()),
	}, nil
}

// Record emits msg as a structured record at info level on the root logger.
func Record(module, sender, msgType string, msg interface{}, elapsed time.Duration) {
	rec, err := NewStructuredLog(sender, msgType, msg, elapsed)
	if err != nil {
		Error(module, "structured record dropped", "err", err)
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		Error(module, "structured record dropped", "err", err)
		return
	}
	Info(module, msgType, "record", string(b))
}
