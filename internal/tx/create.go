package tx

import (
	"math"

	"stakenode/internal/crypto"
	"stakenode/internal/ots"
)

// BlocksPerEpoch converts a block number into a stake epoch.
const BlocksPerEpoch = 100

type TransferParams struct {
	To        crypto.Address
	Amount    int64
	Fee       int64
	PublicKey []byte
	OTSKey    uint32
}

// NewTransfer builds an unsigned transfer from the owner of PublicKey.
func NewTransfer(p TransferParams) (*Transaction, error) {
	if err := negative("amount", p.Amount); err != nil {
		return nil, err
	}
	if err := negative("fee", p.Fee); err != nil {
		return nil, err
	}
	if len(p.PublicKey) == 0 {
		return nil, &ValidationError{Field: "public key", Reason: "empty"}
	}
	if p.To == "" {
		return nil, &ValidationError{Field: "recipient", Reason: "empty"}
	}
	t := &Transaction{
		Header: Header{
			PublicKey: clone(p.PublicKey),
			OTSKey:    p.OTSKey,
		},
		Payload: &Transfer{To: p.To, Amount: uint64(p.Amount), Fee: uint64(p.Fee)},
	}
	return seal(t), nil
}

type StakeParams struct {
	// BlockNumber is the height the stake is submitted at; it selects the epoch.
	BlockNumber          uint64
	PublicKey            []byte
	OTSKey               uint32
	SlavePK              []byte
	FinalizedBlockNumber uint64
	FinalizedHeaderHash  crypto.Digest
	Terminator           crypto.Digest
	Balance              int64
}

func NewStake(p StakeParams) (*Transaction, error) {
	if err := negative("balance", p.Balance); err != nil {
		return nil, err
	}
	if len(p.PublicKey) == 0 {
		return nil, &ValidationError{Field: "public key", Reason: "empty"}
	}
	if len(p.SlavePK) == 0 {
		return nil, &ValidationError{Field: "slave public key", Reason: "empty"}
	}
	t := &Transaction{
		Header: Header{
			PublicKey: clone(p.PublicKey),
			OTSKey:    p.OTSKey,
		},
		Payload: &Stake{
			Balance:              uint64(p.Balance),
			Epoch:                p.BlockNumber / BlocksPerEpoch,
			FinalizedBlockNumber: p.FinalizedBlockNumber,
			FinalizedHeaderHash:  p.FinalizedHeaderHash,
			SlavePK:              clone(p.SlavePK),
			Terminator:           p.Terminator,
		},
	}
	return seal(t), nil
}

// BlockHeader is the part of a block header a coinbase is derived from.
type BlockHeader interface {
	StakeSelector() crypto.Address
	BlockReward() uint64
	FeeReward() uint64
	PrevHeaderHash() crypto.Digest
	BlockNumber() uint64
	HeaderHash() crypto.Digest
}

// NewCoinBase derives the reward transaction of a block. The producer's key
// tree supplies the public key and its current index; recipient and amount
// come from the header only.
func NewCoinBase(h BlockHeader, producer ots.Signer) (*Transaction, error) {
	if h.StakeSelector() == "" {
		return nil, &ValidationError{Field: "stake selector", Reason: "empty"}
	}
	if h.BlockReward() > math.MaxUint64-h.FeeReward() {
		return nil, &ValidationError{Field: "amount", Reason: "block reward + fee reward overflows"}
	}
	pk := producer.PublicKey()
	if len(pk) == 0 {
		return nil, &ValidationError{Field: "public key", Reason: "empty"}
	}
	t := &Transaction{
		Header: Header{
			PublicKey: clone(pk),
			OTSKey:    producer.Index(),
		},
		Payload: &CoinBase{
			To:             h.StakeSelector(),
			Amount:         h.BlockReward() + h.FeeReward(),
			BlockNumber:    h.BlockNumber(),
			PrevHeaderHash: h.PrevHeaderHash(),
			HeaderHash:     h.HeaderHash(),
		},
	}
	return seal(t), nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
