package app

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"stakenode/internal/ots"
	"stakenode/internal/receipt"
	"stakenode/internal/tx"
	"stakenode/internal/types"
)

// Decoder turns one raw message into a transaction.
type Decoder func([]byte) (*tx.Transaction, error)

// Engine is the transaction intake of a node: it drops messages already
// seen, validates the rest in parallel and remembers what it accepted.
type Engine struct {
	seen     *receipt.Cache
	verifier ots.Verifier
	workers  int
}

func NewEngine(seen *receipt.Cache, v ots.Verifier, workers int) *Engine {
	return &Engine{seen: seen, verifier: v, workers: workers}
}

func (e *Engine) Seen() *receipt.Cache { return e.seen }

// Ingest processes raw messages received from peer. Only transactions that
// validate are registered, so an invalid message cannot shadow a valid one
// carrying the same claimed hash.
func (e *Engine) Ingest(ctx context.Context, peer string, raw [][]byte, decode Decoder) ([]types.TxReceipt, error) {
	out := make([]types.TxReceipt, len(raw))
	var (
		pending []*tx.Transaction
		slots   []int
	)
	for i, b := range raw {
		t, err := decode(b)
		if err != nil {
			out[i] = types.TxReceipt{Peer: peer, Status: "malformed:" + decodeReason(err)}
			continue
		}
		out[i] = receiptFor(t, peer)
		// a forged body under a known hash falls through to validation and is
		// rejected there, so the peer is never credited for it
		h := t.Hash[:]
		if e.seen.Contains(h, receipt.ClassTx) && tx.ComputeHash(t) == t.Hash {
			e.seen.AddPeer(h, receipt.ClassTx, peer)
			out[i].Status = types.StatusDuplicate
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}

	results, err := tx.ValidateBatch(ctx, e.verifier, pending, e.workers)
	if err != nil {
		return nil, err
	}
	for j, t := range pending {
		i := slots[j]
		if res := results[j]; res != nil {
			var f *tx.VerificationFailure
			if errors.As(res, &f) {
				out[i].Status = "rejected:" + string(f.Reason)
			} else {
				out[i].Status = "rejected:" + res.Error()
			}
			continue
		}
		// a valid copy earlier in this batch wins
		if e.seen.Contains(t.Hash[:], receipt.ClassTx) {
			e.seen.AddPeer(t.Hash[:], receipt.ClassTx, peer)
			out[i].Status = types.StatusDuplicate
			continue
		}
		e.seen.Register(t.Hash[:], t, receipt.ClassTx)
		e.seen.AddPeer(t.Hash[:], receipt.ClassTx, peer)
		out[i].Status = types.StatusAccepted
	}

	for _, r := range out {
		countStatus(r.Status)
	}
	log.WithFields(log.Fields{"peer": peer, "received": len(raw), "validated": len(pending)}).Info("intake batch done")
	return out, nil
}

func receiptFor(t *tx.Transaction, peer string) types.TxReceipt {
	return types.TxReceipt{
		TxHash: t.Hash.Hex(),
		Type:   t.Type().String(),
		From:   t.From.String(),
		OTSKey: t.OTSKey,
		Peer:   peer,
	}
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, tx.ErrUnknownVariant):
		return "unknown_variant"
	case errors.Is(err, tx.ErrDecode):
		var de *tx.DecodeError
		if errors.As(err, &de) {
			return de.Field
		}
	}
	return "decode"
}
