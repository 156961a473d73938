package signing

import (
	"bytes"
	"fmt"

	"github.com/google/tink/go/insecurecleartextkeyset"
	"github.com/google/tink/go/keyset"
	"github.com/google/tink/go/signature"
	"github.com/google/tink/go/tink"
)

const (
	tinkPrivateKeysetBlockType = "TINK PRIVATE KEYSET"
	tinkPublicKeysetBlockType  = "TINK PUBLIC KEYSET"

	// Tink prefixes every signature with a version byte and the 4 byte key id.
	tinkOutputPrefixSize = 5
)

// TinkScheme uses a Tink ECDSA P-256 keyset. The keysets are exported as
// cleartext JSON inside a PEM block so they can be downloaded like any other key.
type TinkScheme struct{}

func (s *TinkScheme) Name() string {
	return AlgorithmTinkEcdsaP256
}

func (s *TinkScheme) Deterministic() bool {
	return false
}

func (s *TinkScheme) GenerateKeyPair() (*KeyPair, error) {
	privateHandle, err := keyset.NewHandle(signature.ECDSAP256KeyTemplate())
	if err != nil {
		return nil, fmt.Errorf("failed to create tink keyset: %w", err)
	}
	publicHandle, err := privateHandle.Public()
	if err != nil {
		return nil, fmt.Errorf("failed to derive tink public keyset: %w", err)
	}

	var privateJson bytes.Buffer
	if err := insecurecleartextkeyset.Write(privateHandle, keyset.NewJSONWriter(&privateJson)); err != nil {
		return nil, fmt.Errorf("failed to export tink keyset: %w", err)
	}
	var publicJson bytes.Buffer
	if err := publicHandle.WriteWithNoSecrets(keyset.NewJSONWriter(&publicJson)); err != nil {
		return nil, fmt.Errorf("failed to export tink public keyset: %w", err)
	}

	return &KeyPair{
		PublicKey:  encodeKeyBlock(tinkPublicKeysetBlockType, publicJson.Bytes()),
		PrivateKey: encodeKeyBlock(tinkPrivateKeysetBlockType, privateJson.Bytes()),
	}, nil
}

func (s *TinkScheme) ParsePrivateKey(encoded []byte) (Signer, error) {
	data, err := decodeKeyBlock(encoded, tinkPrivateKeysetBlockType)
	if err != nil {
		return nil, err
	}
	handle, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(bytes.NewReader(data)))
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	signer, err := signature.NewSigner(handle)
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	publicHandle, err := handle.Public()
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	verifier, err := signature.NewVerifier(publicHandle)
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	return &TinkSigner{signer: signer, verifier: &TinkVerifier{verifier: verifier}}, nil
}

func (s *TinkScheme) ParsePublicKey(encoded []byte) (Verifier, error) {
	data, err := decodeKeyBlock(encoded, tinkPublicKeysetBlockType)
	if err != nil {
		return nil, err
	}
	handle, err := keyset.ReadWithNoSecrets(keyset.NewJSONReader(bytes.NewReader(data)))
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	verifier, err := signature.NewVerifier(handle)
	if err != nil {
		return nil, invalidKeyFormat("tink keyset", err)
	}
	return &TinkVerifier{verifier: verifier}, nil
}

type TinkSigner struct {
	signer   tink.Signer
	verifier *TinkVerifier
}

func (s *TinkSigner) Sign(digest []byte) ([]byte, error) {
	return s.signer.Sign(digest)
}

func (s *TinkSigner) Public() Verifier {
	return s.verifier
}

type TinkVerifier struct {
	verifier tink.Verifier
}

func (v *TinkVerifier) Verify(digest, signature []byte) Reason {
	if len(signature) <= tinkOutputPrefixSize || !isWellFormedEcdsaSignature(signature[tinkOutputPrefixSize:]) {
		return ReasonMalformedSignature
	}
	if err := v.verifier.Verify(signature, digest); err != nil {
		return ReasonSignatureInvalid
	}
	return ReasonNone
}
