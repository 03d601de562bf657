package ots

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"

	"stakenode/internal/crypto"
	"stakenode/internal/merkle"
)

const (
	MaxHeight = 20

	msgBits    = crypto.DigestSize * 8
	elemSize   = crypto.DigestSize
	leafSecret = 2 * msgBits * elemSize

	// PublicKeySize is root || public seed.
	PublicKeySize = 2 * crypto.DigestSize

	ctxLeaf   = "stakenode ots 2025-01 leaf secret"
	ctxPublic = "stakenode ots 2025-01 public seed"
)

var (
	ErrIndexOutOfRange = errors.New("ots: leaf index out of range")
	ErrBadHeight       = errors.New("ots: bad tree height")
	ErrBadSeed         = errors.New("ots: empty seed")
)

// KeyTree is a merkle tree of 2^height Lamport key pairs derived from a seed.
// Only leaf commitments are kept in memory; secrets are re-derived on Sign.
type KeyTree struct {
	seed       []byte
	height     int
	publicSeed crypto.Digest
	leaves     [][]byte
	root       crypto.Digest

	mu    sync.Mutex
	index uint32
}

func NewKeyTree(seed []byte, height int) (*KeyTree, error) {
	if height <= 0 || height > MaxHeight {
		return nil, errors.Wrapf(ErrBadHeight, "height=%d", height)
	}
	if len(seed) == 0 {
		return nil, ErrBadSeed
	}
	kt := &KeyTree{
		seed:   append([]byte(nil), seed...),
		height: height,
	}
	blake3.DeriveKey(ctxPublic, kt.seed, kt.publicSeed[:])

	n := 1 << height
	kt.leaves = make([][]byte, n)
	for i := 0; i < n; i++ {
		pub := publicElements(kt.leafSecrets(uint32(i)))
		c := leafCommitment(kt.publicSeed, uint32(i), pub)
		kt.leaves[i] = c[:]
	}
	kt.root = merkle.Root(kt.leaves)
	log.WithFields(log.Fields{"height": height, "root": kt.root.Hex()}).Debug("ots key tree ready")
	return kt, nil
}

func (kt *KeyTree) Height() int { return kt.height }

func (kt *KeyTree) PublicKey() []byte {
	pk := make([]byte, 0, PublicKeySize)
	pk = append(pk, kt.root[:]...)
	return append(pk, kt.publicSeed[:]...)
}

func (kt *KeyTree) Address() crypto.Address { return crypto.DeriveAddress(kt.PublicKey()) }

func (kt *KeyTree) Index() uint32 {
	kt.mu.Lock()
	defer kt.mu.Unlock()
	return kt.index
}

// SetIndex moves the next-unused marker. Moving it backwards is allowed and
// is how a leaf gets reused, so only restore values read from durable storage.
func (kt *KeyTree) SetIndex(i uint32) error {
	if uint64(i) >= kt.capacity() {
		return errors.Wrapf(ErrIndexOutOfRange, "index=%d", i)
	}
	kt.mu.Lock()
	kt.index = i
	kt.mu.Unlock()
	return nil
}

func (kt *KeyTree) RemainingSignatures() uint64 {
	return kt.capacity() - uint64(kt.Index())
}

func (kt *KeyTree) capacity() uint64 { return uint64(1) << kt.height }

// Sign produces index || revealed secrets || complement hashes || auth path.
func (kt *KeyTree) Sign(index uint32, msg []byte) ([]byte, error) {
	if uint64(index) >= kt.capacity() {
		return nil, errors.Wrapf(ErrIndexOutOfRange, "index=%d height=%d", index, kt.height)
	}
	secrets := kt.leafSecrets(index)
	m := crypto.Sum(msg)
	path := merkle.Path(kt.leaves, int(index))

	sig := make([]byte, 4, signatureSize(len(path)))
	binary.BigEndian.PutUint32(sig, index)
	complements := make([]byte, 0, msgBits*elemSize)
	for j := 0; j < msgBits; j++ {
		b := bit(m, j)
		sig = append(sig, secret(secrets, j, b)...)
		other := crypto.Sum(secret(secrets, j, 1-b))
		complements = append(complements, other[:]...)
	}
	sig = append(sig, complements...)
	for _, p := range path {
		sig = append(sig, p[:]...)
	}
	return sig, nil
}

// leafSecrets expands the leaf key into 2*256 secrets with the blake3 XOF.
func (kt *KeyTree) leafSecrets(index uint32) []byte {
	var material [4]byte
	binary.BigEndian.PutUint32(material[:], index)
	var leafKey [32]byte
	blake3.DeriveKey(ctxLeaf, append(append([]byte(nil), kt.seed...), material[:]...), leafKey[:])

	h, _ := blake3.NewKeyed(leafKey[:])
	out := make([]byte, leafSecret)
	_, _ = h.Digest().Read(out)
	return out
}

func secret(secrets []byte, j, b int) []byte {
	off := (2*j + b) * elemSize
	return secrets[off : off+elemSize]
}

func publicElements(secrets []byte) []byte {
	pub := make([]byte, 0, len(secrets))
	for off := 0; off < len(secrets); off += elemSize {
		h := crypto.Sum(secrets[off : off+elemSize])
		pub = append(pub, h[:]...)
	}
	return pub
}

func leafCommitment(publicSeed crypto.Digest, index uint32, pub []byte) crypto.Digest {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	return crypto.Sum(publicSeed[:], idx[:], pub)
}

func bit(m crypto.Digest, j int) int {
	return int(m[j/8]>>(7-uint(j%8))) & 1
}

func signatureSize(pathLen int) int {
	return 4 + 2*msgBits*elemSize + pathLen*crypto.DigestSize
}
