package signing

import (
	"crypto/ed25519"
	"io"
)

// Ed25519Scheme signs the digest directly. Signatures are deterministic.
type Ed25519Scheme struct {
	rand io.Reader
}

func (s *Ed25519Scheme) Name() string {
	return AlgorithmEd25519
}

func (s *Ed25519Scheme) Deterministic() bool {
	return true
}

func (s *Ed25519Scheme) GenerateKeyPair() (*KeyPair, error) {
	return generateWithEntropy(s.rand, func(rand io.Reader) (*KeyPair, error) {
		seed := make([]byte, ed25519.SeedSize)
		if _, err := io.ReadFull(rand, seed); err != nil {
			return nil, err
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return encodePKCS8KeyPair(priv, priv.Public())
	})
}

func (s *Ed25519Scheme) ParsePrivateKey(encoded []byte) (Signer, error) {
	key, err := decodePKCS8PrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, unexpectedKeyType("pkcs8", AlgorithmEd25519, key)
	}
	return NewEd25519Signer(priv), nil
}

func (s *Ed25519Scheme) ParsePublicKey(encoded []byte) (Verifier, error) {
	key, err := decodePKIXPublicKey(encoded)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, unexpectedKeyType("pkix", AlgorithmEd25519, key)
	}
	return NewEd25519Verifier(pub), nil
}

type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

func NewEd25519Signer(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv}
}

func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, digest), nil
}

func (s *Ed25519Signer) Public() Verifier {
	return NewEd25519Verifier(s.priv.Public().(ed25519.PublicKey))
}

type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

func NewEd25519Verifier(pub ed25519.PublicKey) *Ed25519Verifier {
	return &Ed25519Verifier{pub: pub}
}

func (v *Ed25519Verifier) Verify(digest, signature []byte) Reason {
	// ed25519.Verify panics on a public key of the wrong size
	if len(v.pub) != ed25519.PublicKeySize {
		return ReasonMalformedPublicKey
	}
	if len(signature) != ed25519.SignatureSize {
		return ReasonMalformedSignature
	}
	if !ed25519.Verify(v.pub, digest, signature) {
		return ReasonSignatureInvalid
	}
	return ReasonNone
}
