// Package codec defines the encoders available to the encode tag.
package codec

import "encoding/base64"

// Codec provides content-type aware marshaling.
type Codec interface {
	// Name is the identifier used in tags, e.g. "json" in `morph:"encode(json)"`.
	Name() string

	// ContentType returns the MIME type (e.g., "application/json").
	ContentType() string

	// Binary reports whether the encoding is not valid text.
	Binary() bool

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// Text encodes v as a string. Binary encodings are base64 encoded.
func Text(c Codec, v any) (string, error) {
	data, err := c.Marshal(v)
	if err != nil {
		return "", err
	}
	if c.Binary() {
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return string(data), nil
}

// FromText decodes a string produced by Text into v.
func FromText(c Codec, s string, v any) error {
	data := []byte(s)
	if c.Binary() {
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		data = raw
	}
	return c.Unmarshal(data, v)
}
