package morph

// Override interfaces let a value take over a built-in tag. When the value at
// a tagged position implements one, the handler calls it instead of acting on
// the value's text, and uses its result as the transformed value.

// Redactable takes over the redact tag.
type Redactable interface {
	RedactWith(replacement string) (any, error)
}

// Maskable takes over the mask tag.
type Maskable interface {
	MaskWith(kind MaskType) (any, error)
}

// Hashable takes over the hash tag.
type Hashable interface {
	HashWith(algo HashAlgo) (any, error)
}

// Encryptable takes over the encrypt tag. enc is the registered encryptor.
type Encryptable interface {
	EncryptWith(enc Encryptor) (any, error)
}

// Decryptable takes over the decrypt tag. enc is the registered encryptor.
type Decryptable interface {
	DecryptWith(enc Encryptor) (any, error)
}
