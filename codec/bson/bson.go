// Package bson provides the BSON codec.
package bson

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoobzio/morph/codec"
)

// Name is the tag identifier of this codec.
const Name = "bson"

type bsonCodec struct{}

// New returns a BSON codec.
func New() codec.Codec {
	return bsonCodec{}
}

func (bsonCodec) Name() string        { return Name }
func (bsonCodec) ContentType() string { return "application/bson" }
func (bsonCodec) Binary() bool        { return true }

func (bsonCodec) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

func (bsonCodec) Unmarshal(data []byte, v any) error {
	return bson.Unmarshal(data, v)
}
