package merkle

import "stakenode/internal/crypto"

// Leaf = H(0x00 || data), Inner = H(0x01 || L || R)
func leafHash(b []byte) crypto.Digest {
	return crypto.Sum([]byte{0x00}, b)
}

func innerHash(l, r crypto.Digest) crypto.Digest {
	return crypto.Sum([]byte{0x01}, l[:], r[:])
}

func leafLevel(leaves [][]byte) []crypto.Digest {
	level := make([]crypto.Digest, len(leaves))
	for i, b := range leaves {
		level[i] = leafHash(b)
	}
	return level
}

func nextLevel(level []crypto.Digest) []crypto.Digest {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1]) // odd: duplicate last
	}
	next := make([]crypto.Digest, len(level)/2)
	for i := 0; i < len(level); i += 2 {
		next[i/2] = innerHash(level[i], level[i+1])
	}
	return next
}

func Root(leaves [][]byte) crypto.Digest {
	if len(leaves) == 0 {
		return crypto.Sum([]byte{0x00})
	}
	level := leafLevel(leaves)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// Path returns the sibling hashes from leaf i up to (excluding) the root.
func Path(leaves [][]byte, i int) []crypto.Digest {
	if i < 0 || i >= len(leaves) {
		return nil
	}
	var path []crypto.Digest
	level := leafLevel(leaves)
	for len(level) > 1 {
		sib := i ^ 1
		if sib >= len(level) {
			sib = i
		}
		path = append(path, level[sib])
		level = nextLevel(level)
		i /= 2
	}
	return path
}

// RootFromPath recomputes the root for leaf data at index i.
func RootFromPath(leaf []byte, i uint64, path []crypto.Digest) crypto.Digest {
	h := leafHash(leaf)
	for _, sib := range path {
		if i&1 == 0 {
			h = innerHash(h, sib)
		} else {
			h = innerHash(sib, h)
		}
		i >>= 1
	}
	return h
}
