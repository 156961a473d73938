package signing

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/jdillenkofer/signet/internal/codec"
	"github.com/jdillenkofer/signet/internal/cryptoerr"
)

const (
	privateKeyBlockType = "PRIVATE KEY"
	publicKeyBlockType  = "PUBLIC KEY"
)

func invalidKeyFormat(format string, err error) error {
	return cryptoerr.NewDecodeError(format, fmt.Errorf("%w: %w", cryptoerr.ErrInvalidKeyFormat, err))
}

func decodeKeyBlock(encoded []byte, blockType string) ([]byte, error) {
	block, err := codec.DecodePemBlock(encoded, blockType)
	if err != nil {
		return nil, invalidKeyFormat("pem", err)
	}
	return block.Bytes, nil
}

func encodeKeyBlock(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func encodePKCS8KeyPair(priv any, pub any) (*KeyPair, error) {
	privDer, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDer, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return &KeyPair{
		PublicKey:  encodeKeyBlock(publicKeyBlockType, pubDer),
		PrivateKey: encodeKeyBlock(privateKeyBlockType, privDer),
	}, nil
}

func decodePKCS8PrivateKey(encoded []byte) (any, error) {
	der, err := decodeKeyBlock(encoded, privateKeyBlockType)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, invalidKeyFormat("pkcs8", err)
	}
	return key, nil
}

func decodePKIXPublicKey(encoded []byte) (any, error) {
	der, err := decodeKeyBlock(encoded, publicKeyBlockType)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, invalidKeyFormat("pkix", err)
	}
	return key, nil
}

func unexpectedKeyType(format string, scheme string, key any) error {
	return invalidKeyFormat(format, fmt.Errorf("%T is not a %s key", key, scheme))
}

// entropySource remembers the first read failure of the wrapped random source so
// that key generation can report exhaustion instead of a generic error.
type entropySource struct {
	reader io.Reader
	err    error
}

func (e *entropySource) Read(p []byte) (int, error) {
	n, err := e.reader.Read(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}

func generateWithEntropy(rand io.Reader, generate func(rand io.Reader) (*KeyPair, error)) (*KeyPair, error) {
	source := &entropySource{reader: rand}
	keyPair, err := generate(source)
	if source.err != nil {
		return nil, cryptoerr.NewCryptoError("generate key pair", fmt.Errorf("%w: %w", cryptoerr.ErrEntropyExhausted, source.err))
	}
	if err != nil {
		return nil, cryptoerr.NewCryptoError("generate key pair", err)
	}
	return keyPair, nil
}
