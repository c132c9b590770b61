// Package msgpack provides the MessagePack codec.
package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zoobzio/morph/codec"
)

// Name is the tag identifier of this codec.
const Name = "msgpack"

type msgpackCodec struct{}

// New returns a MessagePack codec.
func New() codec.Codec {
	return msgpackCodec{}
}

func (msgpackCodec) Name() string        { return Name }
func (msgpackCodec) ContentType() string { return "application/msgpack" }
func (msgpackCodec) Binary() bool        { return true }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
