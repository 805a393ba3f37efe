// Package rpc is the Connect wire layer of the merge service: the JSON codec,
// request and response messages, and handler and client constructors.
package rpc

import (
	"encoding/json"
	"fmt"
)

// Connect looks codecs up by the content-type suffix, so JSON is registered
// under both names its built-in codec uses.
const (
	CodecName        = "json"
	CodecNameCharset = "json; charset=utf-8"
)

// Codec marshals plain Go structs as JSON. It replaces Connect's default
// JSON codecs, which only accept protobuf messages. The zero value is
// registered as "json".
type Codec struct {
	name string
}

// NewCodec returns a JSON codec registered under the given name.
func NewCodec(name string) Codec { return Codec{name: name} }

func (c Codec) Name() string {
	if c.name == "" {
		return CodecName
	}
	return c.name
}

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
