// Package codec converts raw digests and signatures to and from text-safe forms
// that can be downloaded as files or sent as multipart form fields.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/jdillenkofer/signet/internal/cryptoerr"
)

const (
	NameHex    = "hex"
	NameBase64 = "base64"
	NamePem    = "pem"
)

const (
	DigestBlockType    = "DIGEST"
	SignatureBlockType = "SIGNATURE"
)

var (
	errNoPemBlock       = errors.New("no PEM block found")
	errTrailingData     = errors.New("unexpected data after PEM block")
	errUnexpectedHeader = errors.New("unexpected PEM headers")
)

type Codec interface {
	Name() string
	Encode(raw []byte) []byte
	Decode(encoded []byte) ([]byte, error)
}

// ByName returns the codec registered under name. pemBlockType is only used by
// the pem codec.
func ByName(name string, pemBlockType string) (Codec, error) {
	switch name {
	case NameHex:
		return HexCodec{}, nil
	case NameBase64:
		return Base64Codec{}, nil
	case NamePem:
		return PemCodec{BlockType: pemBlockType}, nil
	default:
		return nil, cryptoerr.NewCryptoError("select codec", fmt.Errorf("%w: encoding %q", cryptoerr.ErrUnsupportedAlgorithm, name))
	}
}

// HexCodec is the lowercase hex form written by the original backend.
type HexCodec struct{}

func (HexCodec) Name() string {
	return NameHex
}

func (HexCodec) Encode(raw []byte) []byte {
	encoded := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(encoded, raw)
	return encoded
}

func (HexCodec) Decode(encoded []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(encoded)
	decoded := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(decoded, trimmed)
	if err != nil {
		return nil, cryptoerr.NewDecodeError(NameHex, err)
	}
	return decoded[:n], nil
}

type Base64Codec struct{}

func (Base64Codec) Name() string {
	return NameBase64
}

func (Base64Codec) Encode(raw []byte) []byte {
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(encoded, raw)
	return encoded
}

func (Base64Codec) Decode(encoded []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(encoded)
	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(trimmed)))
	n, err := base64.StdEncoding.Strict().Decode(decoded, trimmed)
	if err != nil {
		return nil, cryptoerr.NewDecodeError(NameBase64, err)
	}
	return decoded[:n], nil
}

// PemCodec frames the raw bytes in a single PEM block of BlockType.
type PemCodec struct {
	BlockType string
}

func (c PemCodec) Name() string {
	return NamePem
}

func (c PemCodec) Encode(raw []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: c.BlockType, Bytes: raw})
}

func (c PemCodec) Decode(encoded []byte) ([]byte, error) {
	block, err := DecodePemBlock(encoded, c.BlockType)
	if err != nil {
		return nil, err
	}
	return block.Bytes, nil
}

// DecodePemBlock decodes exactly one PEM block. If blockTypes is not empty the
// block type must be one of them.
func DecodePemBlock(encoded []byte, blockTypes ...string) (*pem.Block, error) {
	block, rest := pem.Decode(bytes.TrimSpace(encoded))
	if block == nil {
		return nil, cryptoerr.NewDecodeError(NamePem, errNoPemBlock)
	}
	if len(bytes.TrimSpace(rest)) != 0 {
		return nil, cryptoerr.NewDecodeError(NamePem, errTrailingData)
	}
	if len(block.Headers) != 0 {
		return nil, cryptoerr.NewDecodeError(NamePem, errUnexpectedHeader)
	}
	if len(blockTypes) == 0 {
		return block, nil
	}
	for _, blockType := range blockTypes {
		if block.Type == blockType {
			return block, nil
		}
	}
	return nil, cryptoerr.NewDecodeError(NamePem, fmt.Errorf("unexpected block type %q, expected %q", block.Type, blockTypes))
}
