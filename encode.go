package morph

import (
	"context"

	"github.com/zoobzio/morph/codec"
	"github.com/zoobzio/morph/instance"
)

// Encode replaces a value with its rendering by a registered codec, as a
// string. Binary codecs are base64 encoded. Use it on positions of type
// string or any.
type Encode struct {
	Codec string
}

type encodeHandler struct {
	instance.Singleton
}

func (*encodeHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Encode)
	if !ok {
		return nil, mismatch("morph.Encode", annotation)
	}
	c, err := codecFor(a.Codec)
	if err != nil {
		return nil, err
	}
	return codec.Text(c, value)
}
