package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"stakenode/internal/crypto"
	"stakenode/internal/ots"
	"stakenode/internal/tx"
)

const refTransfer = `{
  "type": "TRANSFER",
  "addrFrom": "UTIyM2JjNWU1Yjc4ZWRmZDc3OGIxYmY3MjcwMjA2MWNjMDUzMDEwNzExZmZlZWZiOWQ5NjkzMThiZTVkN2I4NmIwMjFiNzNjMg==",
  "publicKey": "PFI/nMJvgAhjwANSQ5KAb/bfNzrLTUfMYHtiNl/kq3fPMBjTId99y2U8n3loZz5D0SzCbjRhtfQl/V2XdAD+pQ==",
  "transactionHash": "mGKZMU0UifDCPXC2iWOcnABZWIVjWCy3shQ5thWDpcA=",
  "otsKey": 10,
  "transfer": {
    "addrTo": "UWZkNWQ2NDQ1NTkwM2I4ZTUwMGExNGNhZmIxYzRlYTk1YTFmOTc1NjJhYWFhMjRkODNlNWI5ZGMzODYxYTQ3Mzg2Y2U5YWQxNQ==",
    "amount": "100",
    "fee": "1"
  }
}`

const refStake = `{
  "type": "STAKE",
  "addrFrom": "UTIyM2JjNWU1Yjc4ZWRmZDc3OGIxYmY3MjcwMjA2MWNjMDUzMDEwNzExZmZlZWZiOWQ5NjkzMThiZTVkN2I4NmIwMjFiNzNjMg==",
  "publicKey": "PFI/nMJvgAhjwANSQ5KAb/bfNzrLTUfMYHtiNl/kq3fPMBjTId99y2U8n3loZz5D0SzCbjRhtfQl/V2XdAD+pQ==",
  "transactionHash": "0SPiGkWTEpHUX+jVjMLKOxszGGW64UbsOUWZoHRi0mo=",
  "otsKey": 10,
  "stake": {
    "balance": "100",
    "finalizedBlocknumber": "23",
    "finalizedHeaderhash": "xlgxlEyp2QYysUS+fI/amKOQKXMGE/hch6En6TbcM9E=",
    "slavePK": "OAeT3r+PcucO9zUe5QBd9sfKIyD/SeDq0MQLGce7HMFJbhmkgsBjUL3AVOTtUqJOyMmUxE+TQdARkKgasJOt6A==",
    "hash": "H5NgPbU7+tXJI5D3NdDLuGF7SrghSukcVmSj0emwCcg="
  }
}`

const refCoinBase = `{
  "type": "COINBASE",
  "addrFrom": "UTIyM2JjNWU1Yjc4ZWRmZDc3OGIxYmY3MjcwMjA2MWNjMDUzMDEwNzExZmZlZWZiOWQ5NjkzMThiZTVkN2I4NmIwMjFiNzNjMg==",
  "publicKey": "PFI/nMJvgAhjwANSQ5KAb/bfNzrLTUfMYHtiNl/kq3fPMBjTId99y2U8n3loZz5D0SzCbjRhtfQl/V2XdAD+pQ==",
  "transactionHash": "pioe9/rt+Cqh9WL/CKizzHs8TU9F72x2U78HTfLNoSI=",
  "otsKey": 11,
  "coinbase": {
    "addrTo": "UTIyM2JjNWU1Yjc4ZWRmZDc3OGIxYmY3MjcwMjA2MWNjMDUzMDEwNzExZmZlZWZiOWQ5NjkzMThiZTVkN2I4NmIwMjFiNzNjMg==",
    "amount": "90"
  }
}`

const (
	refFrom = "Q223bc5e5b78edfd778b1bf72702061cc053010711ffeefb9d969318be5d7b86b021b73c2"
	refTo   = "Qfd5d64455903b8e500a14cafb1c4ea95a1f97562aaaa24d83e5b9dc3861a47386ce9ad15"
	refPK   = "3c523f9cc26f800863c003524392806ff6df373acb4d47cc607b62365fe4ab77" +
		"cf3018d321df7dcb653c9f7968673e43d12cc26e3461b5f425fd5d977400fea5"
)

func keyTree(t *testing.T, seed byte, index uint32) *ots.KeyTree {
	t.Helper()
	kt, err := ots.NewKeyTree(bytes.Repeat([]byte{seed}, crypto.SeedSize), 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := kt.SetIndex(index); err != nil {
		t.Fatal(err)
	}
	return kt
}

type header struct{ selector crypto.Address }

func (h header) StakeSelector() crypto.Address { return h.selector }
func (header) BlockReward() uint64             { return 50 }
func (header) FeeReward() uint64               { return 40 }
func (header) PrevHeaderHash() crypto.Digest   { return crypto.Sum([]byte("prev_headerhash")) }
func (header) BlockNumber() uint64             { return 1 }
func (header) HeaderHash() crypto.Digest       { return crypto.Sum([]byte("headerhash")) }

func samples(t *testing.T) map[string]*tx.Transaction {
	t.Helper()
	alice, bob := keyTree(t, 'a', 10), keyTree(t, 'b', 0)
	transfer, err := tx.NewTransfer(tx.TransferParams{
		To: bob.Address(), Amount: 100, Fee: 1, PublicKey: alice.PublicKey(), OTSKey: alice.Index(),
	})
	if err != nil {
		t.Fatal(err)
	}
	stake, err := tx.NewStake(tx.StakeParams{
		BlockNumber:          2,
		PublicKey:            alice.PublicKey(),
		OTSKey:               alice.Index(),
		SlavePK:              bob.PublicKey(),
		FinalizedBlockNumber: 23,
		FinalizedHeaderHash:  crypto.Sum([]byte("finalized_headerhash")),
		Terminator:           crypto.Sum([]byte("T1")),
		Balance:              100,
	})
	if err != nil {
		t.Fatal(err)
	}
	lateStake, err := tx.NewStake(tx.StakeParams{
		BlockNumber: 512, PublicKey: alice.PublicKey(), SlavePK: bob.PublicKey(), Balance: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	coinbase, err := tx.NewCoinBase(header{selector: alice.Address()}, keyTree(t, 'a', 11))
	if err != nil {
		t.Fatal(err)
	}
	signed, err := tx.NewTransfer(tx.TransferParams{
		To: bob.Address(), Amount: 5, PublicKey: alice.PublicKey(), OTSKey: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := signed.Sign(alice); err != nil {
		t.Fatal(err)
	}
	// Recipients are not address-checked on construction, so arbitrary bytes
	// must survive both encodings.
	rawTo, err := tx.NewTransfer(tx.TransferParams{
		To: crypto.Address("Q\xff\xfe"), Amount: 1, PublicKey: alice.PublicKey(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return map[string]*tx.Transaction{
		"transfer":   transfer,
		"stake":      stake,
		"late-stake": lateStake,
		"coinbase":   coinbase,
		"signed":     signed,
		"raw-to":     rawTo,
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	for name, orig := range samples(t) {
		t.Run(name, func(t *testing.T) {
			b, err := EncodeJSON(orig)
			if err != nil {
				t.Fatal(err)
			}
			got, err := DecodeJSON(b)
			if err != nil {
				t.Fatalf("decode: %v\n%s", err, b)
			}
			if !tx.Equal(orig, got) {
				t.Fatalf("round trip mismatch\n%+v\n%+v", orig, got)
			}
		})
	}
}

func TestCBOR_RoundTrip(t *testing.T) {
	for name, orig := range samples(t) {
		t.Run(name, func(t *testing.T) {
			b, err := EncodeCBOR(orig)
			if err != nil {
				t.Fatal(err)
			}
			again, _ := EncodeCBOR(orig)
			if !bytes.Equal(b, again) {
				t.Fatal("cbor encoding is not deterministic")
			}
			got, err := DecodeCBOR(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !tx.Equal(orig, got) {
				t.Fatalf("round trip mismatch\n%+v\n%+v", orig, got)
			}
		})
	}
}

func TestRoundTrip_SignedStillValidates(t *testing.T) {
	signed := samples(t)["signed"]
	b, err := EncodeJSON(signed)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if err := got.Validate(ots.Scheme{}); err != nil {
		t.Fatalf("decoded signed tx rejected: %v", err)
	}
}

func TestEncodeJSON_ReferenceShape(t *testing.T) {
	alice, bob := keyTree(t, 'a', 10), keyTree(t, 'b', 0)
	orig := samples(t)["transfer"]
	b, err := EncodeJSON(orig)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	enc := base64.StdEncoding.EncodeToString
	want := map[string]any{
		"type":            "TRANSFER",
		"addrFrom":        enc([]byte(alice.Address())),
		"publicKey":       enc(alice.PublicKey()),
		"transactionHash": enc(orig.Hash[:]),
		"otsKey":          float64(10),
		"transfer": map[string]any{
			"addrTo": enc([]byte(bob.Address())),
			"amount": "100",
			"fee":    "1",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got  %v\nwant %v", got, want)
	}
}

// Besides addrTo and amount, coinbase documents carry blockNumber,
// prevHeaderHash and headerHash so a decoded coinbase keeps its block binding.
func TestEncodeJSON_CoinBaseShape(t *testing.T) {
	b, err := EncodeJSON(samples(t)["coinbase"])
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Type     string `json:"type"`
		OTSKey   int    `json:"otsKey"`
		CoinBase struct {
			AddrTo         string `json:"addrTo"`
			Amount         string `json:"amount"`
			BlockNumber    string `json:"blockNumber"`
			PrevHeaderHash string `json:"prevHeaderHash"`
			HeaderHash     string `json:"headerHash"`
		} `json:"coinbase"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	to, _ := base64.StdEncoding.DecodeString(got.CoinBase.AddrTo)
	if got.Type != "COINBASE" || got.OTSKey != 11 || got.CoinBase.Amount != "90" ||
		crypto.Address(to) != keyTree(t, 'a', 0).Address() {
		t.Fatalf("unexpected coinbase document: %s", b)
	}
	if got.CoinBase.BlockNumber != "1" || got.CoinBase.PrevHeaderHash == "" || got.CoinBase.HeaderHash == "" {
		t.Fatalf("coinbase document lost its block binding: %s", b)
	}
}

func TestDecodeJSON_Reference(t *testing.T) {
	t.Run("transfer", func(t *testing.T) {
		got, err := DecodeJSON([]byte(refTransfer))
		if err != nil {
			t.Fatal(err)
		}
		p, ok := got.Payload.(*tx.Transfer)
		if !ok || got.Type() != tx.TypeTransfer {
			t.Fatalf("payload %T", got.Payload)
		}
		checkRefHeader(t, got, 10, "986299314d1489f0c23d70b689639c9c0059588563582cb7b21439b61583a5c0")
		if p.To != refTo || p.Amount != 100 || p.Fee != 1 {
			t.Fatalf("payload=%+v", p)
		}
	})
	t.Run("stake", func(t *testing.T) {
		got, err := DecodeJSON([]byte(refStake))
		if err != nil {
			t.Fatal(err)
		}
		p, ok := got.Payload.(*tx.Stake)
		if !ok {
			t.Fatalf("payload %T", got.Payload)
		}
		checkRefHeader(t, got, 10, "d123e21a45931291d45fe8d58cc2ca3b1b331865bae146ec394599a07462d26a")
		if p.Balance != 100 || p.Epoch != 0 || p.FinalizedBlockNumber != 23 {
			t.Fatalf("payload=%+v", p)
		}
		if p.FinalizedHeaderHash != crypto.Sum([]byte("finalized_headerhash")) || p.Terminator != crypto.Sum([]byte("T1")) {
			t.Fatal("stake digests not decoded")
		}
		if len(p.SlavePK) != 64 {
			t.Fatalf("slave pk len=%d", len(p.SlavePK))
		}
	})
	t.Run("coinbase", func(t *testing.T) {
		got, err := DecodeJSON([]byte(refCoinBase))
		if err != nil {
			t.Fatal(err)
		}
		p, ok := got.Payload.(*tx.CoinBase)
		if !ok {
			t.Fatalf("payload %T", got.Payload)
		}
		checkRefHeader(t, got, 11, "a62a1ef7faedf82aa1f562ff08a8b3cc7b3c4d4f45ef6c7653bf074df2cda122")
		if p.To != refFrom || p.Amount != 90 {
			t.Fatalf("payload=%+v", p)
		}
	})
}

func checkRefHeader(t *testing.T, got *tx.Transaction, otsKey uint32, hash string) {
	t.Helper()
	if got.Nonce != 0 || got.From != refFrom || got.OTSKey != otsKey || got.Signed() {
		t.Fatalf("header=%+v", got.Header)
	}
	if got.Hash.Hex() != hash {
		t.Fatalf("hash=%s want %s (decode must not recompute)", got.Hash.Hex(), hash)
	}
	if hex.EncodeToString(got.PublicKey) != refPK {
		t.Fatalf("pk=%x", got.PublicKey)
	}
	if got.PubHash != crypto.Sum(got.PublicKey) {
		t.Fatal("pubhash not derived from public key")
	}
}

func TestDecodeJSON_BOM(t *testing.T) {
	b := append([]byte{0xEF, 0xBB, 0xBF}, refTransfer...)
	if _, err := DecodeJSON(b); err != nil {
		t.Fatalf("BOM-prefixed document rejected: %v", err)
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{"type":`, tx.ErrDecode},
		{"no type", strings.Replace(refTransfer, `"type": "TRANSFER",`, ``, 1), tx.ErrDecode},
		{"unknown type", strings.Replace(refTransfer, `"TRANSFER"`, `"MINT"`, 1), tx.ErrUnknownVariant},
		{"lattice", strings.Replace(refTransfer, `"TRANSFER"`, `"LATTICE"`, 1), tx.ErrUnknownVariant},
		{"no payload", strings.Replace(refTransfer, `"transfer"`, `"stake"`, 1), tx.ErrDecode},
		{"no ots key", strings.Replace(refTransfer, `"otsKey": 10,`, ``, 1), tx.ErrDecode},
		{"negative amount", strings.Replace(refTransfer, `"amount": "100"`, `"amount": "-100"`, 1), tx.ErrDecode},
		{"numeric amount", strings.Replace(refTransfer, `"amount": "100"`, `"amount": 100`, 1), tx.ErrDecode},
		{"no fee", strings.Replace(refTransfer, `,
    "fee": "1"`, ``, 1), tx.ErrDecode},
		{"short hash", strings.Replace(refTransfer, `mGKZMU0UifDCPXC2iWOcnABZWIVjWCy3shQ5thWDpcA=`, `mGKZ`, 1), tx.ErrDecode},
		{"bad base64", strings.Replace(refTransfer, `"publicKey": "PFI/`, `"publicKey": "!!!`, 1), tx.ErrDecode},
		{"stake no slave", strings.Replace(refStake, `"slavePK"`, `"slave"`, 1), tx.ErrDecode},
		{"coinbase no amount", strings.Replace(refCoinBase, `"amount": "90"`, `"value": "90"`, 1), tx.ErrDecode},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DecodeJSON([]byte(c.doc))
			if got != nil || !errors.Is(err, c.want) {
				t.Fatalf("want %v, got tx=%v err=%v", c.want, got, err)
			}
		})
	}
}

func TestDecodeCBOR_Errors(t *testing.T) {
	if _, err := DecodeCBOR([]byte{0xff}); !errors.Is(err, tx.ErrDecode) {
		t.Fatalf("garbage: %v", err)
	}
	b, _ := encMode.Marshal(cborTx{Type: "DUPLICATE"})
	if _, err := DecodeCBOR(b); !errors.Is(err, tx.ErrUnknownVariant) {
		t.Fatalf("duplicate: %v", err)
	}
	b, _ = encMode.Marshal(cborTx{Type: "TRANSFER", From: []byte("Qx"), PublicKey: []byte{1}, Hash: make([]byte, 32), OTSKey: ptr(uint32(1))})
	if _, err := DecodeCBOR(b); !errors.Is(err, tx.ErrDecode) {
		t.Fatalf("missing payload: %v", err)
	}
}

func TestEncode_RejectsReservedVariant(t *testing.T) {
	empty := &tx.Transaction{}
	if _, err := EncodeJSON(empty); !errors.Is(err, tx.ErrUnknownVariant) {
		t.Fatalf("json: %v", err)
	}
	if _, err := EncodeCBOR(empty); !errors.Is(err, tx.ErrUnknownVariant) {
		t.Fatalf("cbor: %v", err)
	}
}
