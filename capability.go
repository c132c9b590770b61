package morph

import (
	"context"
	"sync"

	"github.com/zoobzio/morph/codec"
	"github.com/zoobzio/morph/codec/bson"
	"github.com/zoobzio/morph/codec/json"
	"github.com/zoobzio/morph/codec/msgpack"
	"github.com/zoobzio/morph/codec/xml"
	"github.com/zoobzio/morph/codec/yaml"
)

// EncryptAlgo names an encryption algorithm.
// Use these constants in struct tags: `morph:"encrypt(aes)"`
type EncryptAlgo string

const (
	// EncryptAES uses AES-GCM symmetric encryption.
	EncryptAES EncryptAlgo = "aes"

	// EncryptRSA uses RSA-OAEP asymmetric encryption.
	EncryptRSA EncryptAlgo = "rsa"

	// EncryptEnvelope uses envelope encryption with per-message data keys.
	EncryptEnvelope EncryptAlgo = "envelope"
)

// HashAlgo names a hashing algorithm.
// Use these constants in struct tags: `morph:"hash(argon2)"`
type HashAlgo string

const (
	// HashArgon2 uses Argon2id for password hashing (salted, slow).
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt uses bcrypt for password hashing (salted, slow).
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 uses SHA-256 for deterministic hashing (fast, no salt).
	// Use for fingerprinting, NOT for passwords.
	HashSHA256 HashAlgo = "sha256"

	// HashSHA512 uses SHA-512 for deterministic hashing (fast, no salt).
	HashSHA512 HashAlgo = "sha512"
)

// capabilities holds the process-wide encryptors, hashers, maskers and codecs
// used by the built-in handlers. Hashers, maskers and codecs start populated;
// encryptors need keys and must be registered.
var capabilities = struct {
	mu         sync.RWMutex
	encryptors map[EncryptAlgo]Encryptor
	hashers    map[HashAlgo]Hasher
	maskers    map[MaskType]Masker
	codecs     map[string]codec.Codec
}{
	encryptors: make(map[EncryptAlgo]Encryptor),
	hashers:    builtinHashers(),
	maskers:    builtinMaskers(),
	codecs: map[string]codec.Codec{
		json.Name:    json.New(),
		xml.Name:     xml.New(),
		yaml.Name:    yaml.New(),
		msgpack.Name: msgpack.New(),
		bson.Name:    bson.New(),
	},
}

// SetEncryptor registers the encryptor for algo. Safe for concurrent use.
func SetEncryptor(algo EncryptAlgo, enc Encryptor) {
	capabilities.mu.Lock()
	capabilities.encryptors[algo] = enc
	capabilities.mu.Unlock()
	emitCapabilityRegistered(context.Background(), "encryptor", string(algo))
}

// SetHasher registers the hasher for algo, replacing a built-in one.
func SetHasher(algo HashAlgo, h Hasher) {
	capabilities.mu.Lock()
	capabilities.hashers[algo] = h
	capabilities.mu.Unlock()
	emitCapabilityRegistered(context.Background(), "hasher", string(algo))
}

// SetMasker registers the masker for mt, replacing a built-in one.
func SetMasker(mt MaskType, m Masker) {
	capabilities.mu.Lock()
	capabilities.maskers[mt] = m
	capabilities.mu.Unlock()
	emitCapabilityRegistered(context.Background(), "masker", string(mt))
}

// RegisterCodec makes c available to the encode tag under c.Name().
func RegisterCodec(c codec.Codec) {
	capabilities.mu.Lock()
	capabilities.codecs[c.Name()] = c
	capabilities.mu.Unlock()
	emitCapabilityRegistered(context.Background(), "codec", c.Name())
}

func encryptorFor(algo EncryptAlgo) (Encryptor, error) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	enc, ok := capabilities.encryptors[algo]
	if !ok {
		return nil, newConfigError(ErrMissingEncryptor, string(algo))
	}
	return enc, nil
}

func hasherFor(algo HashAlgo) (Hasher, error) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	h, ok := capabilities.hashers[algo]
	if !ok {
		return nil, newConfigError(ErrMissingHasher, string(algo))
	}
	return h, nil
}

func maskerFor(mt MaskType) (Masker, error) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	m, ok := capabilities.maskers[mt]
	if !ok {
		return nil, newConfigError(ErrMissingMasker, string(mt))
	}
	return m, nil
}

func codecFor(name string) (codec.Codec, error) {
	capabilities.mu.RLock()
	defer capabilities.mu.RUnlock()
	c, ok := capabilities.codecs[name]
	if !ok {
		return nil, newConfigError(ErrUnknownCodec, name)
	}
	return c, nil
}
