package tx

import (
	"bytes"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"stakenode/internal/crypto"
	"stakenode/internal/ots"
)

// Sign signs the hash with leaf OTSKey of s, replacing any earlier signature.
// The leaf must not have been used before; that is not checked here.
func (t *Transaction) Sign(s ots.Signer) error {
	sig, err := s.Sign(t.OTSKey, t.Hash[:])
	if err != nil {
		return errors.Wrapf(err, "sign tx %s", t.Hash.Hex())
	}
	t.Signature = sig
	return nil
}

// Validate recomputes the derived fields and checks the signature. A nil
// result means the transaction is intact and signed by PublicKey; otherwise
// the result is a *VerificationFailure.
func (t *Transaction) Validate(v ots.Verifier) error {
	if r := t.check(v); r != "" {
		log.WithFields(log.Fields{"tx": t.Hash.Hex(), "reason": r}).Debug("tx not verified")
		return &VerificationFailure{Reason: r, Hash: t.Hash.Hex()}
	}
	return nil
}

// Valid is Validate reduced to a bool.
func (t *Transaction) Valid(v ots.Verifier) bool { return t.Validate(v) == nil }

func (t *Transaction) check(v ots.Verifier) FailReason {
	if t.Payload == nil {
		return ReasonNoPayload
	}
	if PubHash(t.PublicKey) != t.PubHash {
		return ReasonPubHash
	}
	if crypto.DeriveAddress(t.PublicKey) != t.From {
		return ReasonSenderMismatch
	}
	if ComputeHash(t) != t.Hash {
		return ReasonHash
	}
	if len(t.Signature) == 0 {
		return ReasonNotSigned
	}
	if !v.Verify(t.PublicKey, t.OTSKey, t.Hash[:], t.Signature) {
		return ReasonBadSignature
	}
	return ""
}

// Equal compares every field, signature included.
func Equal(a, b *Transaction) bool {
	if a.Nonce != b.Nonce || a.From != b.From || a.OTSKey != b.OTSKey ||
		a.Hash != b.Hash || a.PubHash != b.PubHash ||
		!bytes.Equal(a.PublicKey, b.PublicKey) || !bytes.Equal(a.Signature, b.Signature) {
		return false
	}
	switch pa := a.Payload.(type) {
	case *Transfer:
		pb, ok := b.Payload.(*Transfer)
		return ok && *pa == *pb
	case *Stake:
		pb, ok := b.Payload.(*Stake)
		return ok && pa.Balance == pb.Balance && pa.Epoch == pb.Epoch &&
			pa.FinalizedBlockNumber == pb.FinalizedBlockNumber &&
			pa.FinalizedHeaderHash == pb.FinalizedHeaderHash &&
			pa.Terminator == pb.Terminator && bytes.Equal(pa.SlavePK, pb.SlavePK)
	case *CoinBase:
		pb, ok := b.Payload.(*CoinBase)
		return ok && *pa == *pb
	case nil:
		return b.Payload == nil
	}
	return false
}
