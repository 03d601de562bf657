package codec

import (
	"github.com/fxamacker/cbor/v2"

	"stakenode/internal/crypto"
	"stakenode/internal/tx"
)

// Compact storage/wire form. Same fields and decode contract as the JSON
// form, integer keys and raw bytes. Addresses travel as byte strings: they
// are not checked on construction or decode and need not be UTF-8.
type cborTx struct {
	Type      string        `cbor:"1,keyasint"`
	Nonce     uint64        `cbor:"2,keyasint,omitempty"`
	From      []byte        `cbor:"3,keyasint"`
	PublicKey []byte        `cbor:"4,keyasint"`
	Hash      []byte        `cbor:"5,keyasint"`
	OTSKey    *uint32       `cbor:"6,keyasint"`
	Signature []byte        `cbor:"7,keyasint,omitempty"`
	Transfer  *cborTransfer `cbor:"8,keyasint,omitempty"`
	Stake     *cborStake    `cbor:"9,keyasint,omitempty"`
	CoinBase  *cborCoinBase `cbor:"10,keyasint,omitempty"`
}

type cborTransfer struct {
	To     []byte  `cbor:"1,keyasint"`
	Amount *uint64 `cbor:"2,keyasint"`
	Fee    *uint64 `cbor:"3,keyasint"`
}

type cborStake struct {
	Balance              *uint64 `cbor:"1,keyasint"`
	Epoch                uint64  `cbor:"2,keyasint,omitempty"`
	FinalizedBlockNumber *uint64 `cbor:"3,keyasint"`
	FinalizedHeaderHash  []byte  `cbor:"4,keyasint"`
	SlavePK              []byte  `cbor:"5,keyasint"`
	Terminator           []byte  `cbor:"6,keyasint"`
}

type cborCoinBase struct {
	To             []byte  `cbor:"1,keyasint"`
	Amount         *uint64 `cbor:"2,keyasint"`
	BlockNumber    uint64  `cbor:"3,keyasint,omitempty"`
	PrevHeaderHash []byte  `cbor:"4,keyasint,omitempty"`
	HeaderHash     []byte  `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

func EncodeCBOR(t *tx.Transaction) ([]byte, error) {
	w := cborTx{
		Type:      t.Type().String(),
		Nonce:     t.Nonce,
		From:      t.From.Bytes(),
		PublicKey: t.PublicKey,
		Hash:      t.Hash[:],
		OTSKey:    ptr(t.OTSKey),
		Signature: t.Signature,
	}
	switch p := t.Payload.(type) {
	case *tx.Transfer:
		w.Transfer = &cborTransfer{To: p.To.Bytes(), Amount: ptr(p.Amount), Fee: ptr(p.Fee)}
	case *tx.Stake:
		w.Stake = &cborStake{
			Balance:              ptr(p.Balance),
			Epoch:                p.Epoch,
			FinalizedBlockNumber: ptr(p.FinalizedBlockNumber),
			FinalizedHeaderHash:  p.FinalizedHeaderHash[:],
			SlavePK:              p.SlavePK,
			Terminator:           p.Terminator[:],
		}
	case *tx.CoinBase:
		w.CoinBase = &cborCoinBase{
			To:          p.To.Bytes(),
			Amount:      ptr(p.Amount),
			BlockNumber: p.BlockNumber,
		}
		if !p.PrevHeaderHash.IsZero() {
			w.CoinBase.PrevHeaderHash = p.PrevHeaderHash[:]
		}
		if !p.HeaderHash.IsZero() {
			w.CoinBase.HeaderHash = p.HeaderHash[:]
		}
	default:
		return nil, unsupported(t)
	}
	return encMode.Marshal(w)
}

// DecodeCBOR has the same contract as DecodeJSON.
func DecodeCBOR(b []byte) (*tx.Transaction, error) {
	var w cborTx
	if err := decMode.Unmarshal(b, &w); err != nil {
		return nil, malformed("document", err)
	}
	if w.Type == "" {
		return nil, missing("type")
	}
	typ, err := tx.ParseType(w.Type)
	if err != nil {
		return nil, err
	}

	h := tx.Header{
		Nonce:     w.Nonce,
		From:      crypto.Address(w.From),
		PublicKey: w.PublicKey,
		Signature: w.Signature,
	}
	if h.From == "" {
		return nil, missing("addrFrom")
	}
	if len(h.PublicKey) == 0 {
		return nil, missing("publicKey")
	}
	if len(w.Hash) == 0 {
		return nil, missing("transactionHash")
	}
	if h.Hash, err = digestBytes("transactionHash", w.Hash); err != nil {
		return nil, err
	}
	if w.OTSKey == nil {
		return nil, missing("otsKey")
	}
	h.OTSKey = *w.OTSKey
	h.PubHash = tx.PubHash(h.PublicKey)

	var p tx.Payload
	switch typ {
	case tx.TypeTransfer:
		p, err = w.Transfer.payload()
	case tx.TypeStake:
		p, err = w.Stake.payload()
	case tx.TypeCoinBase:
		p, err = w.CoinBase.payload()
	}
	if err != nil {
		return nil, err
	}
	return &tx.Transaction{Header: h, Payload: p}, nil
}

func (w *cborTransfer) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("transfer")
	}
	if len(w.To) == 0 {
		return nil, missing("transfer.addrTo")
	}
	p := tx.Transfer{To: crypto.Address(w.To)}
	var err error
	if p.Amount, err = u64("transfer.amount", w.Amount); err != nil {
		return nil, err
	}
	if p.Fee, err = u64("transfer.fee", w.Fee); err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *cborStake) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("stake")
	}
	p := tx.Stake{Epoch: w.Epoch, SlavePK: w.SlavePK}
	var err error
	if p.Balance, err = u64("stake.balance", w.Balance); err != nil {
		return nil, err
	}
	if p.FinalizedBlockNumber, err = u64("stake.finalizedBlocknumber", w.FinalizedBlockNumber); err != nil {
		return nil, err
	}
	if p.FinalizedHeaderHash, err = digestBytes("stake.finalizedHeaderhash", w.FinalizedHeaderHash); err != nil {
		return nil, err
	}
	if len(p.SlavePK) == 0 {
		return nil, missing("stake.slavePK")
	}
	if p.Terminator, err = digestBytes("stake.hash", w.Terminator); err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *cborCoinBase) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("coinbase")
	}
	if len(w.To) == 0 {
		return nil, missing("coinbase.addrTo")
	}
	p := tx.CoinBase{To: crypto.Address(w.To), BlockNumber: w.BlockNumber}
	var err error
	if p.Amount, err = u64("coinbase.amount", w.Amount); err != nil {
		return nil, err
	}
	if p.PrevHeaderHash, err = optDigestBytes("coinbase.prevHeaderHash", w.PrevHeaderHash); err != nil {
		return nil, err
	}
	if p.HeaderHash, err = optDigestBytes("coinbase.headerHash", w.HeaderHash); err != nil {
		return nil, err
	}
	return &p, nil
}
