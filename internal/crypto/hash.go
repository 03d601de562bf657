package crypto

import (
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

const DigestSize = sha256.Size

// Digest is a SHA-256 output. Every hash that enters consensus is one of these.
type Digest [DigestSize]byte

// Sum hashes the concatenation of parts.
func Sum(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

func (d Digest) Bytes() []byte { return d[:] }

func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

func (d Digest) IsZero() bool { return d == Digest{} }

// DigestFromBytes copies b into a Digest; ok is false when the length is wrong.
func DigestFromBytes(b []byte) (d Digest, ok bool) {
	if len(b) != DigestSize {
		return d, false
	}
	copy(d[:], b)
	return d, true
}
