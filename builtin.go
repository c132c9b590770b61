package morph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Built-in tag names.
const (
	TagRedact  = "redact"
	TagMask    = "mask"
	TagHash    = "hash"
	TagEncrypt = "encrypt"
	TagDecrypt = "decrypt"
	TagEncode  = "encode"
	TagCascade = "cascade"
)

var (
	schemaOnce    sync.Once
	defaultSchema *Schema
)

// DefaultSchema returns the process-wide schema, holding the built-in tags.
func DefaultSchema() *Schema {
	schemaOnce.Do(func() {
		defaultSchema = NewSchema()
		if err := RegisterBuiltins(defaultSchema); err != nil {
			panic(err)
		}
	})
	return defaultSchema
}

// RegisterBuiltins installs the built-in tag names and declarations on s.
func RegisterBuiltins(s *Schema) error {
	names := []struct {
		name  string
		parse TagParser
	}{
		{TagRedact, func(arg string) (any, error) { return Redact{With: arg}, nil }},
		{TagMask, required(func(arg string) any { return Mask{Type: MaskType(arg)} })},
		{TagHash, required(func(arg string) any { return Hash{Algo: HashAlgo(arg)} })},
		{TagEncrypt, required(func(arg string) any { return Encrypt{Algo: EncryptAlgo(arg)} })},
		{TagDecrypt, required(func(arg string) any { return Decrypt{Algo: EncryptAlgo(arg)} })},
		{TagEncode, required(func(arg string) any { return Encode{Codec: arg} })},
		{TagCascade, parseCascade},
	}
	for _, n := range names {
		if err := s.Name(n.name, n.parse); err != nil {
			return err
		}
	}

	for _, err := range []error{
		DeclareTag[Redact, *redactHandler](s),
		DeclareTag[Mask, *maskHandler](s),
		DeclareTag[Hash, *hashHandler](s),
		DeclareTag[Encrypt, *encryptHandler](s),
		DeclareTag[Decrypt, *decryptHandler](s),
		DeclareTag[Encode, *encodeHandler](s),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// required wraps a constructor for tags that need an argument.
func required(build func(arg string) any) TagParser {
	return func(arg string) (any, error) {
		if arg == "" {
			return nil, errors.New("argument required")
		}
		return build(arg), nil
	}
}

func parseCascade(arg string) (any, error) {
	switch strings.ToLower(arg) {
	case "":
		return Cascade{}, nil
	case "inherited":
		return Cascade{Inherited: true}, nil
	default:
		return nil, fmt.Errorf("unknown option %q", arg)
	}
}
