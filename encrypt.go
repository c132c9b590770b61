package morph

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zoobzio/morph/instance"
)

// Encryption errors.
var (
	ErrCiphertextShort  = errors.New("ciphertext too short")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Encrypt replaces a string or byte slice with its ciphertext. Strings carry
// base64-encoded ciphertext.
type Encrypt struct {
	Algo EncryptAlgo
}

// Decrypt reverses Encrypt.
type Decrypt struct {
	Algo EncryptAlgo
}

// Encryptor handles encryption and decryption.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// newGCM builds AES-GCM for a 16, 24 or 32 byte key.
func newGCM(key []byte) (cipher.AEAD, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: AES keys are 16, 24 or 32 bytes, got %d", ErrInvalidKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts with a random nonce prepended to the ciphertext.
func seal(gcm cipher.AEAD, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plaintext)+gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal.
func open(gcm cipher.AEAD, ciphertext []byte) ([]byte, error) {
	n := gcm.NonceSize()
	if len(ciphertext) < n {
		return nil, ErrCiphertextShort
	}
	out, err := gcm.Open(nil, ciphertext[:n], ciphertext[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return out, nil
}

type aesEncryptor struct {
	gcm cipher.AEAD
}

// AES returns an AES-GCM encryptor.
func AES(key []byte) (Encryptor, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &aesEncryptor{gcm: gcm}, nil
}

func (e *aesEncryptor) Encrypt(plaintext []byte) ([]byte, error) { return seal(e.gcm, plaintext) }
func (e *aesEncryptor) Decrypt(ciphertext []byte) ([]byte, error) { return open(e.gcm, ciphertext) }

type rsaEncryptor struct {
	pub  *rsa.PublicKey
	priv *rsa.PrivateKey
}

// RSA returns an RSA-OAEP (SHA-256) encryptor. Either key may be nil when only
// one direction is needed.
func RSA(pub *rsa.PublicKey, priv *rsa.PrivateKey) Encryptor {
	if pub == nil && priv != nil {
		pub = &priv.PublicKey
	}
	return &rsaEncryptor{pub: pub, priv: priv}
}

func (e *rsaEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	if e.pub == nil {
		return nil, fmt.Errorf("%w: public key required for encryption", ErrInvalidKey)
	}
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, e.pub, plaintext, nil)
}

func (e *rsaEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.priv == nil {
		return nil, fmt.Errorf("%w: private key required for decryption", ErrInvalidKey)
	}
	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, e.priv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return out, nil
}

// envelopeEncryptor seals each message with a fresh AES-256 data key and
// seals the data key with the master key.
//
// Layout: [2 byte big-endian sealed key length][sealed key][sealed data]
type envelopeEncryptor struct {
	master cipher.AEAD
}

// Envelope returns an envelope encryptor for a 16, 24 or 32 byte master key.
func Envelope(masterKey []byte) (Encryptor, error) {
	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}
	return &envelopeEncryptor{master: gcm}, nil
}

func (e *envelopeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	dataKey := make([]byte, 32)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, err
	}
	data, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	sealedData, err := seal(data, plaintext)
	if err != nil {
		return nil, err
	}
	sealedKey, err := seal(e.master, dataKey)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 2, 2+len(sealedKey)+len(sealedData))
	binary.BigEndian.PutUint16(out, uint16(len(sealedKey))) // #nosec G115 -- sealed 32 byte key
	out = append(out, sealedKey...)
	return append(out, sealedData...), nil
}

func (e *envelopeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 2 {
		return nil, ErrCiphertextShort
	}
	n := int(binary.BigEndian.Uint16(ciphertext))
	if len(ciphertext) < 2+n {
		return nil, ErrCiphertextShort
	}
	dataKey, err := open(e.master, ciphertext[2:2+n])
	if err != nil {
		return nil, fmt.Errorf("data key: %w", err)
	}
	data, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	return open(data, ciphertext[2+n:])
}

type encryptHandler struct {
	instance.Singleton
}

func (*encryptHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Encrypt)
	if !ok {
		return nil, mismatch("morph.Encrypt", annotation)
	}
	enc, err := encryptorFor(a.Algo)
	if err != nil {
		return nil, err
	}
	if v, ok := value.(Encryptable); ok {
		return v.EncryptWith(enc)
	}
	return crypt(value, enc.Encrypt, true)
}

type decryptHandler struct {
	instance.Singleton
}

func (*decryptHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Decrypt)
	if !ok {
		return nil, mismatch("morph.Decrypt", annotation)
	}
	enc, err := encryptorFor(a.Algo)
	if err != nil {
		return nil, err
	}
	if v, ok := value.(Decryptable); ok {
		return v.DecryptWith(enc)
	}
	return crypt(value, enc.Decrypt, false)
}

// crypt applies fn to text values. String values are base64 encoded after
// encryption and decoded before decryption; byte slices are used raw.
func crypt(value any, fn func([]byte) ([]byte, error), encrypting bool) (any, error) {
	textual := isStringKind(value)
	return mapText(value, func(b []byte) ([]byte, error) {
		if !textual {
			return fn(b)
		}
		if encrypting {
			out, err := fn(b)
			if err != nil {
				return nil, err
			}
			return []byte(base64.StdEncoding.EncodeToString(out)), nil
		}
		raw, err := base64.StdEncoding.DecodeString(string(b))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
		}
		return fn(raw)
	})
}
