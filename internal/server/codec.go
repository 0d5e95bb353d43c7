package server

import (
	"bytes"
	"encoding/json"
)

// jsonCodec lets Connect carry plain Go structs as JSON instead of protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal treats an empty body as an empty message.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
