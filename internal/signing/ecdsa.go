package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"github.com/jdillenkofer/signet/internal/hashing"
)

// EcdsaScheme signs hash(digest) on P-256 with ASN.1 DER signatures.
type EcdsaScheme struct {
	hasher *hashing.Hasher
	rand   io.Reader
}

func (s *EcdsaScheme) Name() string {
	return AlgorithmEcdsaP256
}

func (s *EcdsaScheme) Deterministic() bool {
	return false
}

func (s *EcdsaScheme) GenerateKeyPair() (*KeyPair, error) {
	return generateWithEntropy(s.rand, func(random io.Reader) (*KeyPair, error) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), random)
		if err != nil {
			return nil, err
		}
		return encodePKCS8KeyPair(priv, &priv.PublicKey)
	})
}

func (s *EcdsaScheme) ParsePrivateKey(encoded []byte) (Signer, error) {
	key, err := decodePKCS8PrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok || priv.Curve != elliptic.P256() {
		return nil, unexpectedKeyType("pkcs8", AlgorithmEcdsaP256, key)
	}
	return &EcdsaSigner{priv: priv, hasher: s.hasher}, nil
}

func (s *EcdsaScheme) ParsePublicKey(encoded []byte) (Verifier, error) {
	key, err := decodePKIXPublicKey(encoded)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, unexpectedKeyType("pkix", AlgorithmEcdsaP256, key)
	}
	return &EcdsaVerifier{pub: pub, hasher: s.hasher}, nil
}

type EcdsaSigner struct {
	priv   *ecdsa.PrivateKey
	hasher *hashing.Hasher
}

func (s *EcdsaSigner) Sign(digest []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, s.priv, s.hasher.Hash(digest))
}

func (s *EcdsaSigner) Public() Verifier {
	return &EcdsaVerifier{pub: &s.priv.PublicKey, hasher: s.hasher}
}

type EcdsaVerifier struct {
	pub    *ecdsa.PublicKey
	hasher *hashing.Hasher
}

func (v *EcdsaVerifier) Verify(digest, signature []byte) Reason {
	if !isWellFormedEcdsaSignature(signature) {
		return ReasonMalformedSignature
	}
	if !ecdsa.VerifyASN1(v.pub, v.hasher.Hash(digest), signature) {
		return ReasonSignatureInvalid
	}
	return ReasonNone
}

// isWellFormedEcdsaSignature checks for SEQUENCE { r INTEGER, s INTEGER } with
// nothing trailing.
func isWellFormedEcdsaSignature(signature []byte) bool {
	var inner cryptobyte.String
	input := cryptobyte.String(signature)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() {
		return false
	}
	var r, s []byte
	if !inner.ReadASN1Integer(&r) || !inner.ReadASN1Integer(&s) || !inner.Empty() {
		return false
	}
	return true
}
