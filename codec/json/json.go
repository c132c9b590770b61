// Package json provides the JSON codec.
package json

import (
	"encoding/json"

	"github.com/zoobzio/morph/codec"
)

// Name is the tag identifier of this codec.
const Name = "json"

type jsonCodec struct{}

// New returns a JSON codec.
func New() codec.Codec {
	return jsonCodec{}
}

func (jsonCodec) Name() string        { return Name }
func (jsonCodec) ContentType() string { return "application/json" }
func (jsonCodec) Binary() bool        { return false }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
