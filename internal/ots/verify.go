package ots

import (
	"encoding/binary"

	"stakenode/internal/crypto"
	"stakenode/internal/merkle"
)

// Scheme verifies KeyTree signatures. It is stateless and safe for
// concurrent use.
type Scheme struct{}

var _ Verifier = Scheme{}

func (Scheme) Verify(pk []byte, index uint32, msg, sig []byte) bool {
	if len(pk) != PublicKeySize {
		return false
	}
	base := signatureSize(0)
	if len(sig) < base || (len(sig)-base)%crypto.DigestSize != 0 {
		return false
	}
	height := (len(sig) - base) / crypto.DigestSize
	if height == 0 || height > MaxHeight || uint64(index) >= uint64(1)<<height {
		return false
	}
	if binary.BigEndian.Uint32(sig[:4]) != index {
		return false
	}

	root, _ := crypto.DigestFromBytes(pk[:crypto.DigestSize])
	publicSeed, _ := crypto.DigestFromBytes(pk[crypto.DigestSize:])

	m := crypto.Sum(msg)
	revealed := sig[4 : 4+msgBits*elemSize]
	complements := sig[4+msgBits*elemSize : base]

	pub := make([]byte, 0, 2*msgBits*elemSize)
	for j := 0; j < msgBits; j++ {
		shown := crypto.Sum(revealed[j*elemSize : (j+1)*elemSize])
		other := complements[j*elemSize : (j+1)*elemSize]
		if bit(m, j) == 0 {
			pub = append(pub, shown[:]...)
			pub = append(pub, other...)
		} else {
			pub = append(pub, other...)
			pub = append(pub, shown[:]...)
		}
	}

	path := make([]crypto.Digest, height)
	for i := range path {
		off := base + i*crypto.DigestSize
		copy(path[i][:], sig[off:off+crypto.DigestSize])
	}
	leaf := leafCommitment(publicSeed, index, pub)
	return merkle.RootFromPath(leaf[:], uint64(index), path) == root
}
