// Package tx defines the protocol transaction variants, their canonical hash
// and their binding to one-time signatures.
package tx

import (
	"stakenode/internal/crypto"
)

// Type is the protocol discriminant. The set is closed.
type Type uint8

const (
	TypeTransfer Type = iota + 1
	TypeStake
	TypeCoinBase
	// reserved, not constructible
	TypeLattice
	TypeDuplicate
)

var typeNames = map[Type]string{
	TypeTransfer:  "TRANSFER",
	TypeStake:     "STAKE",
	TypeCoinBase:  "COINBASE",
	TypeLattice:   "LATTICE",
	TypeDuplicate: "DUPLICATE",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseType maps an interchange tag to a constructible variant. Reserved
// tags are reported as unknown as well.
func ParseType(s string) (Type, error) {
	switch s {
	case "TRANSFER":
		return TypeTransfer, nil
	case "STAKE":
		return TypeStake, nil
	case "COINBASE":
		return TypeCoinBase, nil
	}
	return 0, &UnknownVariantError{Tag: s}
}

// Header holds the fields shared by every variant.
type Header struct {
	Nonce     uint64
	From      crypto.Address
	PublicKey []byte
	OTSKey    uint32
	Signature []byte
	Hash      crypto.Digest
	PubHash   crypto.Digest
}

// Payload is implemented only by *Transfer, *Stake and *CoinBase.
type Payload interface {
	Type() Type
	encode(e *Encoder)
}

// Transaction is immutable once hashed except for Signature, which Sign sets.
type Transaction struct {
	Header
	Payload Payload
}

func (t *Transaction) Type() Type {
	if t.Payload == nil {
		return 0
	}
	return t.Payload.Type()
}

func (t *Transaction) Signed() bool { return len(t.Signature) > 0 }

// Transfer moves Amount from the sender to To, paying Fee.
type Transfer struct {
	To     crypto.Address
	Amount uint64
	Fee    uint64
}

func (*Transfer) Type() Type { return TypeTransfer }

func (p *Transfer) encode(e *Encoder) {
	e.String(string(p.To))
	e.Uint(p.Amount)
	e.Uint(p.Fee)
}

// Stake registers Balance for block production from the epoch containing
// FinalizedBlockNumber onwards. Terminator is the last element of the
// staker's hash chain.
type Stake struct {
	Balance              uint64
	Epoch                uint64
	FinalizedBlockNumber uint64
	FinalizedHeaderHash  crypto.Digest
	SlavePK              []byte
	Terminator           crypto.Digest
}

func (*Stake) Type() Type { return TypeStake }

func (p *Stake) encode(e *Encoder) {
	e.Uint(p.Balance)
	e.Uint(p.Epoch)
	e.Uint(p.FinalizedBlockNumber)
	e.Bytes(p.FinalizedHeaderHash[:])
	e.Bytes(p.SlavePK)
	e.Bytes(p.Terminator[:])
}

// CoinBase pays the block reward plus collected fees to the stake selector.
type CoinBase struct {
	To             crypto.Address
	Amount         uint64
	BlockNumber    uint64
	PrevHeaderHash crypto.Digest
	HeaderHash     crypto.Digest
}

func (*CoinBase) Type() Type { return TypeCoinBase }

func (p *CoinBase) encode(e *Encoder) {
	e.String(string(p.To))
	e.Uint(p.Amount)
	e.Uint(p.BlockNumber)
	e.Bytes(p.PrevHeaderHash[:])
	e.Bytes(p.HeaderHash[:])
}
