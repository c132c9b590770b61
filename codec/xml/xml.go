// Package xml provides the XML codec.
package xml

import (
	"encoding/xml"

	"github.com/zoobzio/morph/codec"
)

// Name is the tag identifier of this codec.
const Name = "xml"

type xmlCodec struct{}

// New returns a XML codec.
func New() codec.Codec {
	return xmlCodec{}
}

func (xmlCodec) Name() string        { return Name }
func (xmlCodec) ContentType() string { return "application/xml" }
func (xmlCodec) Binary() bool        { return false }

func (xmlCodec) Marshal(v any) ([]byte, error) {
	return xml.Marshal(v)
}

func (xmlCodec) Unmarshal(data []byte, v any) error {
	return xml.Unmarshal(data, v)
}
