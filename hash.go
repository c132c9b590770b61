package morph

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/zoobzio/morph/instance"
)

// Hash replaces a string or byte slice with its hash.
type Hash struct {
	Algo HashAlgo
}

// Hasher performs one-way hashing.
type Hasher interface {
	// Hash returns the encoded hash of plaintext. Password hashers embed
	// their salt and parameters in the result.
	Hash(plaintext []byte) (string, error)
}

// HasherFunc adapts a function into a Hasher.
type HasherFunc func(plaintext []byte) (string, error)

// Hash implements Hasher.
func (f HasherFunc) Hash(plaintext []byte) (string, error) { return f(plaintext) }

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Parallelism factor
	KeyLen  uint32 // Output key length
	SaltLen uint32 // Salt length
}

// DefaultArgon2Params follows the OWASP baseline for Argon2id.
var DefaultArgon2Params = Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}

// Argon2 returns an Argon2id hasher producing PHC-formatted strings:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func Argon2(p Argon2Params) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		salt := make([]byte, p.SaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		key := argon2.IDKey(plaintext, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
		return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
			argon2.Version, p.Memory, p.Time, p.Threads,
			base64.RawStdEncoding.EncodeToString(salt),
			base64.RawStdEncoding.EncodeToString(key),
		), nil
	})
}

// Bcrypt returns a bcrypt hasher with the given cost.
func Bcrypt(cost int) Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		out, err := bcrypt.GenerateFromPassword(plaintext, cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(out), nil
	})
}

// SHA256 returns a hex-encoded SHA-256 hasher.
func SHA256() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha256.Sum256(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

// SHA512 returns a hex-encoded SHA-512 hasher.
func SHA512() Hasher {
	return HasherFunc(func(plaintext []byte) (string, error) {
		sum := sha512.Sum512(plaintext)
		return hex.EncodeToString(sum[:]), nil
	})
}

func builtinHashers() map[HashAlgo]Hasher {
	return map[HashAlgo]Hasher{
		HashArgon2: Argon2(DefaultArgon2Params),
		HashBcrypt: Bcrypt(bcrypt.DefaultCost),
		HashSHA256: SHA256(),
		HashSHA512: SHA512(),
	}
}

type hashHandler struct {
	instance.Singleton
}

func (*hashHandler) Handle(_ context.Context, value any, annotation any) (any, error) {
	a, ok := annotation.(Hash)
	if !ok {
		return nil, mismatch("morph.Hash", annotation)
	}
	if h, ok := value.(Hashable); ok {
		return h.HashWith(a.Algo)
	}
	h, err := hasherFor(a.Algo)
	if err != nil {
		return nil, err
	}
	return mapText(value, func(b []byte) ([]byte, error) {
		s, err := h.Hash(b)
		return []byte(s), err
	})
}
