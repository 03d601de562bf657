package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	SeedSize = 48
	KeyAlgo  = "lamport-merkle"
)

// NodeKey is the on-disk form of the node's key tree seed. The OTS index is
// kept next to the seed so a restarted node does not reuse a leaf.
type NodeKey struct {
	Algo   string `json:"algo"`
	Seed   string `json:"seed_hex"`
	Height int    `json:"height"`
	Index  uint32 `json:"index"`
}

// LoadOrCreate returns the node key at path, generating a fresh seed when the
// file is missing or unreadable.
func LoadOrCreate(path string, height int) (NodeKey, error) {
	if b, err := os.ReadFile(path); err == nil {
		var nk NodeKey
		if json.Unmarshal(b, &nk) == nil && nk.Algo == KeyAlgo {
			if seed, err := hex.DecodeString(nk.Seed); err == nil && len(seed) == SeedSize && nk.Height > 0 {
				return nk, nil
			}
		}
		// corrupted: regenerate
		_ = os.Remove(path)
	}

	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return NodeKey{}, errors.Wrap(err, "read random seed")
	}
	nk := NodeKey{Algo: KeyAlgo, Seed: hex.EncodeToString(seed), Height: height}
	if err := Save(path, nk); err != nil {
		return NodeKey{}, err
	}
	return nk, nil
}

// Save writes nk with owner-only permissions.
func Save(path string, nk NodeKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create key dir")
	}
	b, err := json.MarshalIndent(nk, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal node key")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o600), "write node key")
}

func (nk NodeKey) SeedBytes() []byte {
	b, _ := hex.DecodeString(nk.Seed)
	return b
}
