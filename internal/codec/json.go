package codec

import (
	"bytes"
	"encoding/json"

	"stakenode/internal/tx"
)

// Interchange form. Binary fields are base64, addresses are base64 of their
// ASCII form, amounts and block numbers are decimal strings.
type jsonTx struct {
	Type            *string       `json:"type"`
	Nonce           string        `json:"nonce,omitempty"`
	AddrFrom        *string       `json:"addrFrom"`
	PublicKey       *string       `json:"publicKey"`
	TransactionHash *string       `json:"transactionHash"`
	OTSKey          *uint32       `json:"otsKey"`
	Signature       string        `json:"signature,omitempty"`
	Transfer        *jsonTransfer `json:"transfer,omitempty"`
	Stake           *jsonStake    `json:"stake,omitempty"`
	CoinBase        *jsonCoinBase `json:"coinbase,omitempty"`
}

type jsonTransfer struct {
	AddrTo *string `json:"addrTo"`
	Amount *string `json:"amount"`
	Fee    *string `json:"fee"`
}

type jsonStake struct {
	Balance              *string `json:"balance"`
	Epoch                string  `json:"epoch,omitempty"`
	FinalizedBlocknumber *string `json:"finalizedBlocknumber"`
	FinalizedHeaderhash  *string `json:"finalizedHeaderhash"`
	SlavePK              *string `json:"slavePK"`
	Hash                 *string `json:"hash"`
}

type jsonCoinBase struct {
	AddrTo         *string `json:"addrTo"`
	Amount         *string `json:"amount"`
	BlockNumber    string  `json:"blockNumber,omitempty"`
	PrevHeaderHash string  `json:"prevHeaderHash,omitempty"`
	HeaderHash     string  `json:"headerHash,omitempty"`
}

func ptr[T any](v T) *T { return &v }

func EncodeJSON(t *tx.Transaction) ([]byte, error) {
	w := jsonTx{
		Type:            ptr(t.Type().String()),
		AddrFrom:        ptr(b64(t.From.Bytes())),
		PublicKey:       ptr(b64(t.PublicKey)),
		TransactionHash: ptr(b64(t.Hash[:])),
		OTSKey:          ptr(t.OTSKey),
		Signature:       b64(t.Signature),
	}
	if t.Nonce != 0 {
		w.Nonce = dec(t.Nonce)
	}
	switch p := t.Payload.(type) {
	case *tx.Transfer:
		w.Transfer = &jsonTransfer{
			AddrTo: ptr(b64(p.To.Bytes())),
			Amount: ptr(dec(p.Amount)),
			Fee:    ptr(dec(p.Fee)),
		}
	case *tx.Stake:
		w.Stake = &jsonStake{
			Balance:              ptr(dec(p.Balance)),
			FinalizedBlocknumber: ptr(dec(p.FinalizedBlockNumber)),
			FinalizedHeaderhash:  ptr(b64(p.FinalizedHeaderHash[:])),
			SlavePK:              ptr(b64(p.SlavePK)),
			Hash:                 ptr(b64(p.Terminator[:])),
		}
		if p.Epoch != 0 {
			w.Stake.Epoch = dec(p.Epoch)
		}
	case *tx.CoinBase:
		w.CoinBase = &jsonCoinBase{
			AddrTo:         ptr(b64(p.To.Bytes())),
			Amount:         ptr(dec(p.Amount)),
			PrevHeaderHash: b64Digest(p.PrevHeaderHash),
			HeaderHash:     b64Digest(p.HeaderHash),
		}
		if p.BlockNumber != 0 {
			w.CoinBase.BlockNumber = dec(p.BlockNumber)
		}
	default:
		return nil, unsupported(t)
	}
	return json.Marshal(w)
}

// DecodeJSON parses the interchange form. The transactionHash is taken as
// given; call Validate before trusting the result. A leading UTF-8 BOM is
// skipped.
func DecodeJSON(b []byte) (*tx.Transaction, error) {
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	var w jsonTx
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, malformed("document", err)
	}
	if w.Type == nil {
		return nil, missing("type")
	}
	typ, err := tx.ParseType(*w.Type)
	if err != nil {
		return nil, err
	}

	h, err := w.header()
	if err != nil {
		return nil, err
	}
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

func (w *jsonTx) header() (tx.Header, error) {
	var (
		h   tx.Header
		err error
	)
	if h.Nonce, err = optUintField("nonce", w.Nonce); err != nil {
		return h, err
	}
	if h.From, err = addressField("addrFrom", w.AddrFrom); err != nil {
		return h, err
	}
	if h.PublicKey, err = bytesField("publicKey", w.PublicKey); err != nil {
		return h, err
	}
	if h.Hash, err = digestField("transactionHash", w.TransactionHash); err != nil {
		return h, err
	}
	if w.OTSKey == nil {
		return h, missing("otsKey")
	}
	h.OTSKey = *w.OTSKey
	if w.Signature != "" {
		if h.Signature, err = bytesField("signature", &w.Signature); err != nil {
			return h, err
		}
	}
	h.PubHash = tx.PubHash(h.PublicKey)
	return h, nil
}

func (w *jsonTransfer) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("transfer")
	}
	var (
		p   tx.Transfer
		err error
	)
	if p.To, err = addressField("transfer.addrTo", w.AddrTo); err != nil {
		return nil, err
	}
	if p.Amount, err = uintField("transfer.amount", w.Amount); err != nil {
		return nil, err
	}
	if p.Fee, err = uintField("transfer.fee", w.Fee); err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *jsonStake) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("stake")
	}
	var (
		p   tx.Stake
		err error
	)
	if p.Balance, err = uintField("stake.balance", w.Balance); err != nil {
		return nil, err
	}
	if p.Epoch, err = optUintField("stake.epoch", w.Epoch); err != nil {
		return nil, err
	}
	if p.FinalizedBlockNumber, err = uintField("stake.finalizedBlocknumber", w.FinalizedBlocknumber); err != nil {
		return nil, err
	}
	if p.FinalizedHeaderHash, err = digestField("stake.finalizedHeaderhash", w.FinalizedHeaderhash); err != nil {
		return nil, err
	}
	if p.SlavePK, err = bytesField("stake.slavePK", w.SlavePK); err != nil {
		return nil, err
	}
	if p.Terminator, err = digestField("stake.hash", w.Hash); err != nil {
		return nil, err
	}
	return &p, nil
}

func (w *jsonCoinBase) payload() (tx.Payload, error) {
	if w == nil {
		return nil, missing("coinbase")
	}
	var (
		p   tx.CoinBase
		err error
	)
	if p.To, err = addressField("coinbase.addrTo", w.AddrTo); err != nil {
		return nil, err
	}
	if p.Amount, err = uintField("coinbase.amount", w.Amount); err != nil {
		return nil, err
	}
	if p.BlockNumber, err = optUintField("coinbase.blockNumber", w.BlockNumber); err != nil {
		return nil, err
	}
	if p.PrevHeaderHash, err = optDigestField("coinbase.prevHeaderHash", w.PrevHeaderHash); err != nil {
		return nil, err
	}
	if p.HeaderHash, err = optDigestField("coinbase.headerHash", w.HeaderHash); err != nil {
		return nil, err
	}
	return &p, nil
}
