package share

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// tokenEncoding is base64url without padding. Strict decoding rejects
// non-zero trailing bits so every character of a token is significant.
var tokenEncoding = base64.RawURLEncoding.Strict()

// Codec turns a ShareRef into a URL-safe token and back.
//
// Tokens are JSON, zlib-compressed, AES-CBC encrypted under one process-wide
// key and IV. Anyone holding that configuration can read every token: the
// scheme hides identifiers in URLs, it does not protect them.
type Codec struct {
	block cipher.Block
	iv    []byte
}

// NewCodec builds a codec. Keys that are not a valid AES size are stretched
// to 32 bytes with HKDF-SHA256; the IV must be exactly one block.
func NewCodec(key, iv string) (*Codec, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("share iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if key == "" {
		return nil, fmt.Errorf("share key is empty")
	}

	k := []byte(key)
	switch len(k) {
	case 16, 24, 32:
	default:
		k = make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte("loci-share-token")), k); err != nil {
			return nil, fmt.Errorf("failed to derive share key: %w", err)
		}
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("failed to create share cipher: %w", err)
	}
	return &Codec{block: block, iv: []byte(iv)}, nil
}

// Encode is deterministic: the same ref always yields the same token.
func (c *Codec) Encode(ref locitypes.ShareRef) (string, error) {
	if ref.OwnerID == "" || ref.ItineraryID == "" {
		return "", fmt.Errorf("share ref needs both owner and itinerary id")
	}
	payload, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("failed to marshal share ref: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("failed to compress share ref: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress share ref: %w", err)
	}

	plain := pkcs7Pad(compressed.Bytes(), aes.BlockSize)
	sealed := make([]byte, len(plain))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(sealed, plain)

	return tokenEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Every failure wraps ErrInvalidShareToken.
func (c *Codec) Decode(token string) (locitypes.ShareRef, error) {
	var ref locitypes.ShareRef

	token = strings.TrimRight(strings.TrimSpace(token), "=")
	sealed, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return ref, invalid("bad encoding", err)
	}
	if len(sealed) == 0 || len(sealed)%aes.BlockSize != 0 {
		return ref, invalid("bad length", nil)
	}

	plain := make([]byte, len(sealed))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(plain, sealed)
	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return ref, invalid("bad padding", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(plain))
	if err != nil {
		return ref, invalid("bad compression header", err)
	}
	payload, err := io.ReadAll(io.LimitReader(zr, 4096))
	if err != nil {
		return ref, invalid("bad compressed payload", err)
	}
	if err := zr.Close(); err != nil {
		return ref, invalid("bad compressed payload", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ref); err != nil {
		return ref, invalid("bad payload", err)
	}
	if ref.OwnerID == "" || ref.ItineraryID == "" {
		return locitypes.ShareRef{}, invalid("incomplete payload", nil)
	}
	return ref, nil
}

func invalid(reason string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", locitypes.ErrInvalidShareToken, reason, err)
	}
	return fmt.Errorf("%w: %s", locitypes.ErrInvalidShareToken, reason)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(b))
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("invalid padding size %d", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("invalid padding byte")
		}
	}
	return b[:len(b)-n], nil
}
