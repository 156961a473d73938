package signing

// Reason explains why a signature was rejected. ReasonNone means the signature is valid.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMalformedPublicKey Reason = "MalformedPublicKey"
	ReasonMalformedSignature Reason = "MalformedSignature"
	ReasonDigestMismatch     Reason = "DigestMismatch"
	ReasonSignatureInvalid   Reason = "SignatureInvalid"
)

// KeyPair holds PEM encoded key material. It is never persisted by this package.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

type Signer interface {
	Sign(digest []byte) ([]byte, error)
	Public() Verifier
}

type Verifier interface {
	Verify(digest, signature []byte) Reason
}

// Scheme is a signature algorithm together with its key encoding.
type Scheme interface {
	Name() string
	// Deterministic reports whether signing the same digest with the same key
	// always yields the same signature.
	Deterministic() bool
	GenerateKeyPair() (*KeyPair, error)
	ParsePrivateKey(encoded []byte) (Signer, error)
	ParsePublicKey(encoded []byte) (Verifier, error)
}
