package tx

import (
	"encoding/binary"
	"strconv"

	"stakenode/internal/crypto"
)

// Encoder builds the byte string a transaction hash is taken over.
// Integers are written as base-10 text, byte fields raw; every field carries a
// 4-byte big-endian length prefix. Field order is consensus critical.
type Encoder struct {
	buf []byte
}

func (e *Encoder) Bytes(b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	e.buf = append(e.buf, n[:]...)
	e.buf = append(e.buf, b...)
}

func (e *Encoder) String(s string) { e.Bytes([]byte(s)) }

func (e *Encoder) Uint(v uint64) { e.Bytes(strconv.AppendUint(nil, v, 10)) }

func (e *Encoder) Result() []byte { return e.buf }

// CanonicalBytes returns the hashing pre-image of t. Signature and Hash are
// not part of it.
func CanonicalBytes(t *Transaction) []byte {
	var e Encoder
	e.Uint(uint64(t.Type()))
	e.Uint(t.Nonce)
	e.String(string(t.From))
	e.Bytes(t.PublicKey)
	e.Uint(uint64(t.OTSKey))
	e.Bytes(t.PubHash[:])
	if t.Payload != nil {
		t.Payload.encode(&e)
	}
	return e.Result()
}

func ComputeHash(t *Transaction) crypto.Digest {
	return crypto.Sum(CanonicalBytes(t))
}

func PubHash(pk []byte) crypto.Digest {
	return crypto.Sum(pk)
}

// seal fills in the derived header fields.
func seal(t *Transaction) *Transaction {
	t.From = crypto.DeriveAddress(t.PublicKey)
	t.PubHash = PubHash(t.PublicKey)
	t.Hash = ComputeHash(t)
	return t
}
