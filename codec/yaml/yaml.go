// Package yaml provides the YAML codec.
package yaml

import (
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/morph/codec"
)

// Name is the tag identifier of this codec.
const Name = "yaml"

type yamlCodec struct{}

// New returns a YAML codec.
func New() codec.Codec {
	return yamlCodec{}
}

func (yamlCodec) Name() string        { return Name }
func (yamlCodec) ContentType() string { return "application/yaml" }
func (yamlCodec) Binary() bool        { return false }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
