package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestSize is the byte length of every leaf, node and root digest.
const DigestSize = sha256.Size

// DigestPrefix marks the display form of a digest. It never takes part in hashing.
const DigestPrefix = "0x"

// Digest is a SHA-256 output. The zero value is a valid (all zero) digest, so absence is
// always signalled separately.
type Digest [DigestSize]byte

// SumDigest hashes data with the same primitive used for leaves and parents.
func SumDigest(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Hex returns the lowercase hex digits without prefix.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String returns the canonical 0x-prefixed form.
func (d Digest) String() string {
	return DigestPrefix + d.Hex()
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest accepts the prefixed or bare hex form, in either case.
func ParseDigest(value string) (Digest, error) {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 2 && (trimmed[:2] == DigestPrefix || trimmed[:2] == "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != DigestSize*2 {
		return Digest{}, fmt.Errorf("%w: digest must be %d hex digits", ErrInvalidArgument, DigestSize*2)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: digest is not hex", ErrInvalidArgument)
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

func ParseDigests(values []string) ([]Digest, error) {
	out := make([]Digest, 0, len(values))
	for i, value := range values {
		d, err := ParseDigest(value)
		if err != nil {
			return nil, fmt.Errorf("digest %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
