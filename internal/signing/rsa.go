package signing

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"slices"

	"github.com/jdillenkofer/signet/internal/cryptoerr"
	"github.com/jdillenkofer/signet/internal/hashing"
)

const rsaPublicExponent = 65537

// RsaScheme signs hash(digest) with RSA-PSS (MGF1, maximum salt length) or
// PKCS #1 v1.5. PSS matches the original backend and is randomized; PKCS #1
// v1.5 is deterministic.
type RsaScheme struct {
	hasher  *hashing.Hasher
	keyBits int
	pss     bool
	rand    io.Reader
}

func newRsaScheme(opts Options, pss bool) (*RsaScheme, error) {
	if !slices.Contains(supportedRsaKeyBits, opts.RsaKeyBits) {
		return nil, cryptoerr.NewCryptoError("select scheme", fmt.Errorf("%w: %d bits, expected one of %v", cryptoerr.ErrUnsupportedKeySize, opts.RsaKeyBits, supportedRsaKeyBits))
	}
	return &RsaScheme{
		hasher:  opts.Hasher,
		keyBits: opts.RsaKeyBits,
		pss:     pss,
		rand:    opts.Rand,
	}, nil
}

func (s *RsaScheme) Name() string {
	if s.pss {
		return AlgorithmRsaPss
	}
	return AlgorithmRsaPkcs1v15
}

func (s *RsaScheme) Deterministic() bool {
	return !s.pss
}

func (s *RsaScheme) GenerateKeyPair() (*KeyPair, error) {
	return generateWithEntropy(s.rand, func(random io.Reader) (*KeyPair, error) {
		priv, err := rsa.GenerateKey(random, s.keyBits)
		if err != nil {
			return nil, err
		}
		return encodePKCS8KeyPair(priv, &priv.PublicKey)
	})
}

func (s *RsaScheme) ParsePrivateKey(encoded []byte) (Signer, error) {
	key, err := decodePKCS8PrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, unexpectedKeyType("pkcs8", s.Name(), key)
	}
	if priv.PublicKey.E != rsaPublicExponent {
		return nil, invalidKeyFormat("pkcs8", fmt.Errorf("unexpected public exponent %d", priv.PublicKey.E))
	}
	return &RsaSigner{priv: priv, hasher: s.hasher, pss: s.pss}, nil
}

func (s *RsaScheme) ParsePublicKey(encoded []byte) (Verifier, error) {
	key, err := decodePKIXPublicKey(encoded)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, unexpectedKeyType("pkix", s.Name(), key)
	}
	return &RsaVerifier{pub: pub, hasher: s.hasher, pss: s.pss}, nil
}

type RsaSigner struct {
	priv   *rsa.PrivateKey
	hasher *hashing.Hasher
	pss    bool
}

func (s *RsaSigner) Sign(digest []byte) ([]byte, error) {
	hashed := s.hasher.Hash(digest)
	hash := s.hasher.CryptoHash()
	if s.pss {
		return rsa.SignPSS(rand.Reader, s.priv, hash, hashed, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthAuto,
			Hash:       hash,
		})
	}
	return rsa.SignPKCS1v15(nil, s.priv, hash, hashed)
}

func (s *RsaSigner) Public() Verifier {
	return &RsaVerifier{pub: &s.priv.PublicKey, hasher: s.hasher, pss: s.pss}
}

type RsaVerifier struct {
	pub    *rsa.PublicKey
	hasher *hashing.Hasher
	pss    bool
}

func (v *RsaVerifier) Verify(digest, signature []byte) Reason {
	if len(signature) != v.pub.Size() {
		return ReasonMalformedSignature
	}
	hashed := v.hasher.Hash(digest)
	hash := v.hasher.CryptoHash()
	var err error
	if v.pss {
		err = rsa.VerifyPSS(v.pub, hash, hashed, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthAuto,
			Hash:       hash,
		})
	} else {
		err = rsa.VerifyPKCS1v15(v.pub, hash, hashed, signature)
	}
	if err != nil {
		return ReasonSignatureInvalid
	}
	return ReasonNone
}
