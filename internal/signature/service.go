// Package signature provides the create-keys, sign and verify operations on top
// of a signing scheme, a hasher and the codecs used for the exchanged artifacts.
package signature

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdillenkofer/signet/internal/codec"
	"github.com/jdillenkofer/signet/internal/cryptoerr"
	"github.com/jdillenkofer/signet/internal/hashing"
	"github.com/jdillenkofer/signet/internal/signing"
)

const (
	FieldData       = "file"
	FieldPrivateKey = "private_key"
	FieldPublicKey  = "public_key"
	FieldSignature  = "signature"
	FieldDigest     = "hash"
)

var ErrDigestLength = errors.New("unexpected digest length")

type SignRequest struct {
	Data       []byte
	PrivateKey []byte
}

type SignResponse struct {
	// Digest and Signature are encoded with the configured codecs.
	Digest        []byte
	Signature     []byte
	Algorithm     string
	HashAlgorithm hashing.Algorithm
}

// VerifyRequest carries the encoded artifacts of a verification. At least one of
// Data and Digest must be set. When Data is set the digest is always recomputed
// from it.
type VerifyRequest struct {
	Signature []byte
	PublicKey []byte
	Data      []byte
	Digest    []byte
}

type VerifyResult struct {
	Valid  bool
	Reason signing.Reason
}

func valid() *VerifyResult {
	return &VerifyResult{Valid: true, Reason: signing.ReasonNone}
}

func invalid(reason signing.Reason) *VerifyResult {
	return &VerifyResult{Valid: false, Reason: reason}
}

type Service interface {
	CreateKeys(ctx context.Context) (*signing.KeyPair, error)
	Sign(ctx context.Context, req SignRequest) (*SignResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
}

type Config struct {
	Scheme         signing.Scheme
	Hasher         *hashing.Hasher
	DigestCodec    codec.Codec
	SignatureCodec codec.Codec
	// RequireData rejects verifications that only carry a digest.
	RequireData bool
}

type service struct {
	scheme         signing.Scheme
	hasher         *hashing.Hasher
	digestCodec    codec.Codec
	signatureCodec codec.Codec
	requireData    bool
}

// Compile-time check to ensure service implements Service
var _ Service = (*service)(nil)

func NewService(config Config) (Service, error) {
	if config.Scheme == nil {
		return nil, errors.New("signature service requires a signing scheme")
	}
	if config.Hasher == nil {
		hasher, err := hashing.New(hashing.DefaultAlgorithm)
		if err != nil {
			return nil, err
		}
		config.Hasher = hasher
	}
	if config.DigestCodec == nil {
		config.DigestCodec = codec.HexCodec{}
	}
	if config.SignatureCodec == nil {
		config.SignatureCodec = codec.HexCodec{}
	}
	return &service{
		scheme:         config.Scheme,
		hasher:         config.Hasher,
		digestCodec:    config.DigestCodec,
		signatureCodec: config.SignatureCodec,
		requireData:    config.RequireData,
	}, nil
}

func missing(field string) error {
	return cryptoerr.NewInputError(field, cryptoerr.ErrMissingInput)
}

func (s *service) CreateKeys(ctx context.Context) (*signing.KeyPair, error) {
	keyPair, err := s.scheme.GenerateKeyPair()
	if err != nil {
		if cryptoerr.IsCryptoError(err) {
			return nil, err
		}
		return nil, cryptoerr.NewCryptoError("generate key pair", err)
	}
	return keyPair, nil
}

func (s *service) Sign(ctx context.Context, req SignRequest) (*SignResponse, error) {
	if req.Data == nil {
		return nil, missing(FieldData)
	}
	if len(req.PrivateKey) == 0 {
		return nil, missing(FieldPrivateKey)
	}
	signer, err := s.scheme.ParsePrivateKey(req.PrivateKey)
	if err != nil {
		return nil, err
	}

	digest := s.hasher.Hash(req.Data)
	sig, err := signer.Sign(digest)
	if err != nil {
		return nil, cryptoerr.NewCryptoError("sign", err)
	}

	return &SignResponse{
		Digest:        s.digestCodec.Encode(digest),
		Signature:     s.signatureCodec.Encode(sig),
		Algorithm:     s.scheme.Name(),
		HashAlgorithm: s.hasher.Algorithm(),
	}, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if len(req.Signature) == 0 {
		return nil, missing(FieldSignature)
	}
	if len(req.PublicKey) == 0 {
		return nil, missing(FieldPublicKey)
	}
	if req.Data == nil {
		if s.requireData {
			return nil, missing(FieldData)
		}
		if len(req.Digest) == 0 {
			return nil, missing(FieldDigest)
		}
	}

	var submittedDigest hashing.Digest
	if len(req.Digest) != 0 {
		decoded, err := s.digestCodec.Decode(req.Digest)
		if err != nil {
			return nil, err
		}
		if len(decoded) != s.hasher.Size() {
			return nil, cryptoerr.NewDecodeError(s.digestCodec.Name(), fmt.Errorf("%w: expected %d bytes for %s, got %d", ErrDigestLength, s.hasher.Size(), s.hasher.Algorithm(), len(decoded)))
		}
		submittedDigest = decoded
	}

	verifier, err := s.scheme.ParsePublicKey(req.PublicKey)
	if err != nil {
		return invalid(signing.ReasonMalformedPublicKey), nil
	}
	sig, err := s.signatureCodec.Decode(req.Signature)
	if err != nil {
		return invalid(signing.ReasonMalformedSignature), nil
	}

	digest := submittedDigest
	if req.Data != nil {
		digest = s.hasher.Hash(req.Data)
		if submittedDigest != nil && !hashing.Equal(digest, submittedDigest) {
			return invalid(signing.ReasonDigestMismatch), nil
		}
	}

	if reason := verifier.Verify(digest, sig); reason != signing.ReasonNone {
		return invalid(reason), nil
	}
	return valid(), nil
}
