package tool

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jdillenkofer/signet/internal/codec"
	"github.com/jdillenkofer/signet/internal/hashing"
	"github.com/jdillenkofer/signet/internal/ioutils"
	"github.com/jdillenkofer/signet/internal/signature"
	"github.com/jdillenkofer/signet/internal/signing"
)

const (
	PublicKeySuffix = ".pub"
	SignatureSuffix = ".sig"
	DigestSuffix    = ".hash"
)

type VerificationError struct {
	Path   string
	Reason signing.Reason
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification of %s failed: %s", e.Path, e.Reason)
}

// SignatureTool runs the signature operations against files on disk.
type SignatureTool struct {
	service     signature.Service
	hasher      *hashing.Hasher
	digestCodec codec.Codec
}

func NewSignatureTool(service signature.Service, hasher *hashing.Hasher, digestCodec codec.Codec) *SignatureTool {
	return &SignatureTool{
		service:     service,
		hasher:      hasher,
		digestCodec: digestCodec,
	}
}

// CreateKeys writes the private key to path and the public key to path.pub. With
// an empty path both keys are printed to out instead.
func (t *SignatureTool) CreateKeys(ctx context.Context, path string, out io.Writer) error {
	keyPair, err := t.service.CreateKeys(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		if _, err := out.Write(keyPair.PrivateKey); err != nil {
			return err
		}
		_, err := out.Write(keyPair.PublicKey)
		return err
	}
	if err := t.WriteKeypair(path, keyPair.PrivateKey, keyPair.PublicKey); err != nil {
		return err
	}
	fmt.Fprintf(out, "Private key written to %s\n", path)
	fmt.Fprintf(out, "Public key written to %s%s\n", path, PublicKeySuffix)
	return nil
}

func (t *SignatureTool) WriteKeypair(path string, priv []byte, pub []byte) error {
	privPath := path
	pubPath := path + PublicKeySuffix

	if err := os.WriteFile(privPath, priv, 0600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pub, 0644); err != nil {
		return err
	}
	return nil
}

// Sign writes the detached signature to outPath.sig and the digest to
// outPath.hash. outPath defaults to dataPath.
func (t *SignatureTool) Sign(ctx context.Context, keyPath string, dataPath string, outPath string, out io.Writer) error {
	privateKey, err := ioutils.ReadFile(ctx, keyPath)
	if err != nil {
		return err
	}
	data, err := ioutils.ReadFile(ctx, dataPath)
	if err != nil {
		return err
	}

	signed, err := t.service.Sign(ctx, signature.SignRequest{Data: data, PrivateKey: privateKey})
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = dataPath
	}
	sigPath := outPath + SignatureSuffix
	digestPath := outPath + DigestSuffix
	if err := os.WriteFile(sigPath, withNewline(signed.Signature), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(digestPath, withNewline(signed.Digest), 0644); err != nil {
		return err
	}

	fmt.Fprintf(out, "Signed %s with %s over %s\n", dataPath, signed.Algorithm, signed.HashAlgorithm)
	fmt.Fprintf(out, "Signature written to %s\n", sigPath)
	fmt.Fprintf(out, "Hash written to %s\n", digestPath)
	return nil
}

// Verify checks sigPath against the data file, the digest file or both. An
// invalid signature is reported as *VerificationError.
func (t *SignatureTool) Verify(ctx context.Context, keyPath string, sigPath string, dataPath string, digestPath string, out io.Writer) error {
	publicKey, err := ioutils.ReadFile(ctx, keyPath)
	if err != nil {
		return err
	}
	sig, err := ioutils.ReadFile(ctx, sigPath)
	if err != nil {
		return err
	}

	req := signature.VerifyRequest{Signature: sig, PublicKey: publicKey}
	if dataPath != "" {
		req.Data, err = ioutils.ReadFile(ctx, dataPath)
		if err != nil {
			return err
		}
	}
	if digestPath != "" {
		req.Digest, err = ioutils.ReadFile(ctx, digestPath)
		if err != nil {
			return err
		}
	}

	result, err := t.service.Verify(ctx, req)
	if err != nil {
		return err
	}
	if !result.Valid {
		return &VerificationError{Path: sigPath, Reason: result.Reason}
	}
	fmt.Fprintf(out, "Signature %s is valid\n", sigPath)
	return nil
}

// Hash streams the data file through the hasher and prints the encoded digest.
func (t *SignatureTool) Hash(ctx context.Context, dataPath string, out io.Writer) error {
	f, err := ioutils.OpenFile(ctx, dataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	digest, err := t.hasher.HashReader(ctx, f)
	if err != nil {
		return err
	}
	_, err = out.Write(withNewline(t.digestCodec.Encode(digest)))
	return err
}

func withNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b
	}
	return append(b, '\n')
}
