package signing

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/jdillenkofer/signet/internal/cryptoerr"
	"github.com/jdillenkofer/signet/internal/hashing"
)

const (
	AlgorithmRsaPss        = "rsa-pss"
	AlgorithmRsaPkcs1v15   = "rsa-pkcs1v15"
	AlgorithmEcdsaP256     = "ecdsa-p256"
	AlgorithmEd25519       = "ed25519"
	AlgorithmMlDsa65       = "ml-dsa-65"
	AlgorithmTinkEcdsaP256 = "tink-ecdsa-p256"
)

const DefaultAlgorithm = AlgorithmRsaPss

const DefaultRsaKeyBits = 2048

var supportedRsaKeyBits = []int{2048, 3072, 4096}

type Options struct {
	Algorithm string
	// Hasher is used by schemes that hash the digest once more before signing
	// (RSA and ECDSA). Defaults to SHA-256.
	Hasher     *hashing.Hasher
	RsaKeyBits int
	// Deterministic requests reproducible signatures. Schemes that can only sign
	// with fresh randomness reject it.
	Deterministic bool
	// Rand is the key generation entropy source. Defaults to crypto/rand.Reader.
	// Tink keysets always draw from the library's own source, so that scheme
	// rejects any other reader.
	Rand io.Reader
}

func NewScheme(opts Options) (Scheme, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.Hasher == nil {
		hasher, err := hashing.New(hashing.DefaultAlgorithm)
		if err != nil {
			return nil, err
		}
		opts.Hasher = hasher
	}
	if opts.RsaKeyBits == 0 {
		opts.RsaKeyBits = DefaultRsaKeyBits
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	if opts.Algorithm == AlgorithmTinkEcdsaP256 && opts.Rand != rand.Reader {
		return nil, cryptoerr.NewCryptoError("select scheme", fmt.Errorf("%w: %s does not accept a custom entropy source", cryptoerr.ErrUnsupportedAlgorithm, AlgorithmTinkEcdsaP256))
	}

	var scheme Scheme
	switch opts.Algorithm {
	case AlgorithmRsaPss:
		rsaScheme, err := newRsaScheme(opts, true)
		if err != nil {
			return nil, err
		}
		scheme = rsaScheme
	case AlgorithmRsaPkcs1v15:
		rsaScheme, err := newRsaScheme(opts, false)
		if err != nil {
			return nil, err
		}
		scheme = rsaScheme
	case AlgorithmEcdsaP256:
		scheme = &EcdsaScheme{hasher: opts.Hasher, rand: opts.Rand}
	case AlgorithmEd25519:
		scheme = &Ed25519Scheme{rand: opts.Rand}
	case AlgorithmMlDsa65:
		scheme = &MlDsaScheme{randomized: !opts.Deterministic, rand: opts.Rand}
	case AlgorithmTinkEcdsaP256:
		scheme = &TinkScheme{}
	default:
		return nil, cryptoerr.NewCryptoError("select scheme", fmt.Errorf("%w: %q", cryptoerr.ErrUnsupportedAlgorithm, opts.Algorithm))
	}

	if opts.Deterministic && !scheme.Deterministic() {
		return nil, cryptoerr.NewCryptoError("select scheme", fmt.Errorf("%w: %s cannot sign deterministically", cryptoerr.ErrUnsupportedAlgorithm, scheme.Name()))
	}
	return scheme, nil
}

func SupportedAlgorithms() []string {
	return []string{
		AlgorithmRsaPss,
		AlgorithmRsaPkcs1v15,
		AlgorithmEcdsaP256,
		AlgorithmEd25519,
		AlgorithmMlDsa65,
		AlgorithmTinkEcdsaP256,
	}
}
