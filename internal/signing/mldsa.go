package signing

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

const (
	mlDsaPrivateKeyBlockType = "ML-DSA-65 PRIVATE KEY"
	mlDsaPublicKeyBlockType  = "ML-DSA-65 PUBLIC KEY"
)

// MlDsaScheme is the post-quantum ML-DSA-65 (FIPS 204) scheme. Signing is
// hedged by default; with randomized disabled it is deterministic.
type MlDsaScheme struct {
	randomized bool
	rand       io.Reader
}

func (s *MlDsaScheme) Name() string {
	return AlgorithmMlDsa65
}

func (s *MlDsaScheme) Deterministic() bool {
	return !s.randomized
}

func (s *MlDsaScheme) GenerateKeyPair() (*KeyPair, error) {
	return generateWithEntropy(s.rand, func(random io.Reader) (*KeyPair, error) {
		pub, priv, err := mldsa65.GenerateKey(random)
		if err != nil {
			return nil, err
		}
		pubBytes, err := pub.MarshalBinary()
		if err != nil {
			return nil, err
		}
		privBytes, err := priv.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return &KeyPair{
			PublicKey:  encodeKeyBlock(mlDsaPublicKeyBlockType, pubBytes),
			PrivateKey: encodeKeyBlock(mlDsaPrivateKeyBlockType, privBytes),
		}, nil
	})
}

func (s *MlDsaScheme) ParsePrivateKey(encoded []byte) (Signer, error) {
	data, err := decodeKeyBlock(encoded, mlDsaPrivateKeyBlockType)
	if err != nil {
		return nil, err
	}
	if len(data) != mldsa65.PrivateKeySize {
		return nil, invalidKeyFormat("ml-dsa-65", fmt.Errorf("expected %d bytes, got %d", mldsa65.PrivateKeySize, len(data)))
	}
	priv := &mldsa65.PrivateKey{}
	if err := priv.UnmarshalBinary(data); err != nil {
		return nil, invalidKeyFormat("ml-dsa-65", err)
	}
	pub, ok := priv.Public().(*mldsa65.PublicKey)
	if !ok {
		return nil, invalidKeyFormat("ml-dsa-65", fmt.Errorf("unexpected public key type %T", priv.Public()))
	}
	return &MlDsaSigner{priv: priv, pub: pub, randomized: s.randomized}, nil
}

func (s *MlDsaScheme) ParsePublicKey(encoded []byte) (Verifier, error) {
	data, err := decodeKeyBlock(encoded, mlDsaPublicKeyBlockType)
	if err != nil {
		return nil, err
	}
	if len(data) != mldsa65.PublicKeySize {
		return nil, invalidKeyFormat("ml-dsa-65", fmt.Errorf("expected %d bytes, got %d", mldsa65.PublicKeySize, len(data)))
	}
	pub := &mldsa65.PublicKey{}
	if err := pub.UnmarshalBinary(data); err != nil {
		return nil, invalidKeyFormat("ml-dsa-65", err)
	}
	return &MlDsaVerifier{pub: pub}, nil
}

type MlDsaSigner struct {
	priv       *mldsa65.PrivateKey
	pub        *mldsa65.PublicKey
	randomized bool
}

func (s *MlDsaSigner) Sign(digest []byte) ([]byte, error) {
	sig := make([]byte, mldsa65.SignatureSize)
	err := mldsa65.SignTo(s.priv, digest, nil, s.randomized, sig)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *MlDsaSigner) Public() Verifier {
	return &MlDsaVerifier{pub: s.pub}
}

type MlDsaVerifier struct {
	pub *mldsa65.PublicKey
}

func (v *MlDsaVerifier) Verify(digest, signature []byte) Reason {
	if len(signature) != mldsa65.SignatureSize {
		return ReasonMalformedSignature
	}
	if !mldsa65.Verify(v.pub, digest, nil, signature) {
		return ReasonSignatureInvalid
	}
	return ReasonNone
}
