package hashing

import (
	"context"
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/jdillenkofer/signet/internal/cryptoerr"
)

type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	SHA512     Algorithm = "sha512"
	SHA3_256   Algorithm = "sha3-256"
	BLAKE2b256 Algorithm = "blake2b-256"
)

const DefaultAlgorithm = SHA256

// Digest is the fixed-length output of a Hasher.
type Digest []byte

// Hasher computes deterministic digests. It holds no mutable state and is safe
// for concurrent use.
type Hasher struct {
	algorithm  Algorithm
	cryptoHash crypto.Hash
	newHash    func() hash.Hash
}

func New(algorithm Algorithm) (*Hasher, error) {
	switch algorithm {
	case SHA256:
		return &Hasher{algorithm: algorithm, cryptoHash: crypto.SHA256, newHash: sha256.New}, nil
	case SHA512:
		return &Hasher{algorithm: algorithm, cryptoHash: crypto.SHA512, newHash: sha512.New}, nil
	case SHA3_256:
		return &Hasher{algorithm: algorithm, cryptoHash: crypto.SHA3_256, newHash: sha3.New256}, nil
	case BLAKE2b256:
		return &Hasher{algorithm: algorithm, cryptoHash: crypto.BLAKE2b_256, newHash: newBlake2b256}, nil
	default:
		return nil, cryptoerr.NewCryptoError("select hash", fmt.Errorf("%w: hash %q", cryptoerr.ErrUnsupportedAlgorithm, algorithm))
	}
}

func newBlake2b256() hash.Hash {
	// blake2b.New256 only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	return h
}

func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

func (h *Hasher) CryptoHash() crypto.Hash {
	return h.cryptoHash
}

func (h *Hasher) Size() int {
	return h.cryptoHash.Size()
}

func (h *Hasher) Hash(data []byte) Digest {
	hash := h.newHash()
	hash.Write(data)
	return hash.Sum([]byte{})
}

func (h *Hasher) HashReader(ctx context.Context, reader io.Reader) (Digest, error) {
	tracer := otel.Tracer("internal/hashing")
	_, span := tracer.Start(ctx, "HashReader")
	defer span.End()

	hash := h.newHash()
	n, err := io.Copy(hash, reader)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("hash.algorithm", string(h.algorithm)), attribute.Int64("hash.bytes", n))
	return hash.Sum([]byte{}), nil
}

// Equal compares two digests in constant time.
func Equal(a, b Digest) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func SupportedAlgorithms() []Algorithm {
	return []Algorithm{SHA256, SHA512, SHA3_256, BLAKE2b256}
}
