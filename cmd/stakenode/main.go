package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"stakenode/internal/app"
	"stakenode/internal/buildinfo"
	"stakenode/internal/codec"
	"stakenode/internal/config"
	"stakenode/internal/crypto"
	"stakenode/internal/ots"
	"stakenode/internal/receipt"
	"stakenode/internal/tx"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: stakenode [-config file] <command> [flags]

commands:
  keygen                         create or show the node key
  transfer -to ADDR -amount N -fee N
  stake    -slave-pk B64 -balance N -block N -finalized-number N -finalized-hash B64 -terminator B64
  coinbase -selector ADDR -block-reward N -fee-reward N -block N -prev-hash B64 -header-hash B64
  verify   [-cbor] [-peer ID] [file]   validate newline-delimited transactions
  cbor     [file]                      convert a JSON transaction to CBOR on stdout
  version`)
	os.Exit(2)
}

func main() {
	cfgPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "YAML config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	cfg.SetupLogging()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "keygen":
		err = runKeygen(cfg)
	case "transfer":
		err = runTransfer(cfg, args)
	case "stake":
		err = runStake(cfg, args)
	case "coinbase":
		err = runCoinBase(cfg, args)
	case "verify":
		err = runVerify(cfg, args)
	case "cbor":
		err = runCBOR(args)
	case "version":
		fmt.Println(buildinfo.String())
	default:
		usage()
	}
	if err != nil {
		log.WithError(err).Fatal(cmd)
	}
}

// nodeKey owns the key tree and the persisted next-unused index.
type nodeKey struct {
	path string
	nk   crypto.NodeKey
	tree *ots.KeyTree
}

func loadNodeKey(cfg config.Config) (*nodeKey, error) {
	nk, err := crypto.LoadOrCreate(cfg.KeyPath, cfg.KeyTreeHeight)
	if err != nil {
		return nil, err
	}
	tree, err := ots.NewKeyTree(nk.SeedBytes(), nk.Height)
	if err != nil {
		return nil, err
	}
	if err := tree.SetIndex(nk.Index); err != nil {
		return nil, errors.Wrap(err, "key tree exhausted")
	}
	return &nodeKey{path: cfg.KeyPath, nk: nk, tree: tree}, nil
}

// reserve persists index+1 before the current leaf is used so a crash in
// between never leads to reuse. The tree keeps pointing at the reserved leaf.
func (k *nodeKey) reserve() (uint32, error) {
	idx := k.tree.Index()
	k.nk.Index = idx + 1
	if err := crypto.Save(k.path, k.nk); err != nil {
		return 0, err
	}
	return idx, nil
}

func runKeygen(cfg config.Config) error {
	k, err := loadNodeKey(cfg)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"address":   k.tree.Address(),
		"publicKey": base64.StdEncoding.EncodeToString(k.tree.PublicKey()),
		"height":    k.tree.Height(),
		"index":     k.tree.Index(),
		"remaining": k.tree.RemainingSignatures(),
	})
}

func runTransfer(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	to := fs.String("to", "", "recipient address")
	amount := fs.Int64("amount", 0, "amount")
	fee := fs.Int64("fee", 0, "fee")
	_ = fs.Parse(args)
	if !crypto.ValidAddress(crypto.Address(*to)) {
		return errors.Errorf("invalid recipient address %q", *to)
	}

	k, err := loadNodeKey(cfg)
	if err != nil {
		return err
	}
	idx, err := k.reserve()
	if err != nil {
		return err
	}
	t, err := tx.NewTransfer(tx.TransferParams{
		To: crypto.Address(*to), Amount: *amount, Fee: *fee,
		PublicKey: k.tree.PublicKey(), OTSKey: idx,
	})
	if err != nil {
		return err
	}
	return signAndPrint(t, k.tree)
}

func runStake(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("stake", flag.ExitOnError)
	slave := fs.String("slave-pk", "", "slave public key (base64)")
	balance := fs.Int64("balance", 0, "balance to stake")
	block := fs.Uint64("block", 0, "current block number")
	finNum := fs.Uint64("finalized-number", 0, "finalized block number")
	finHash := fs.String("finalized-hash", "", "finalized header hash (base64)")
	term := fs.String("terminator", "", "hash chain terminator (base64)")
	_ = fs.Parse(args)

	slavePK, err := base64.StdEncoding.DecodeString(*slave)
	if err != nil {
		return errors.Wrap(err, "slave-pk")
	}
	fh, err := flagDigest("finalized-hash", *finHash)
	if err != nil {
		return err
	}
	th, err := flagDigest("terminator", *term)
	if err != nil {
		return err
	}

	k, err := loadNodeKey(cfg)
	if err != nil {
		return err
	}
	idx, err := k.reserve()
	if err != nil {
		return err
	}
	t, err := tx.NewStake(tx.StakeParams{
		BlockNumber:          *block,
		PublicKey:            k.tree.PublicKey(),
		OTSKey:               idx,
		SlavePK:              slavePK,
		FinalizedBlockNumber: *finNum,
		FinalizedHeaderHash:  fh,
		Terminator:           th,
		Balance:              *balance,
	})
	if err != nil {
		return err
	}
	return signAndPrint(t, k.tree)
}

type flagHeader struct {
	selector               crypto.Address
	blockReward, feeReward uint64
	number                 uint64
	prevHash, headerHash   crypto.Digest
}

func (h flagHeader) StakeSelector() crypto.Address { return h.selector }
func (h flagHeader) BlockReward() uint64           { return h.blockReward }
func (h flagHeader) FeeReward() uint64             { return h.feeReward }
func (h flagHeader) PrevHeaderHash() crypto.Digest { return h.prevHash }
func (h flagHeader) BlockNumber() uint64           { return h.number }
func (h flagHeader) HeaderHash() crypto.Digest     { return h.headerHash }

func runCoinBase(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("coinbase", flag.ExitOnError)
	sel := fs.String("selector", "", "stake selector address")
	br := fs.Uint64("block-reward", 0, "block reward")
	fr := fs.Uint64("fee-reward", 0, "fee reward")
	num := fs.Uint64("block", 0, "block number")
	prev := fs.String("prev-hash", "", "previous header hash (base64)")
	hh := fs.String("header-hash", "", "header hash (base64)")
	_ = fs.Parse(args)

	h := flagHeader{selector: crypto.Address(*sel), blockReward: *br, feeReward: *fr, number: *num}
	var err error
	if h.prevHash, err = flagDigest("prev-hash", *prev); err != nil {
		return err
	}
	if h.headerHash, err = flagDigest("header-hash", *hh); err != nil {
		return err
	}

	k, err := loadNodeKey(cfg)
	if err != nil {
		return err
	}
	if _, err := k.reserve(); err != nil {
		return err
	}
	t, err := tx.NewCoinBase(h, k.tree)
	if err != nil {
		return err
	}
	return signAndPrint(t, k.tree)
}

func runVerify(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	useCBOR := fs.Bool("cbor", false, "input lines are base64 CBOR")
	peer := fs.String("peer", "local", "peer the input came from")
	_ = fs.Parse(args)

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	var raw [][]byte
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		if len(line) > 0 {
			raw = append(raw, line)
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read input")
	}

	decode := codec.DecodeJSON
	if *useCBOR {
		decode = func(b []byte) (*tx.Transaction, error) {
			bin, err := base64.StdEncoding.DecodeString(string(b))
			if err != nil {
				return nil, &tx.DecodeError{Field: "base64", Err: err}
			}
			return codec.DecodeCBOR(bin)
		}
	}
	e := app.NewEngine(receipt.New(cfg.MessageQSize), ots.Scheme{}, cfg.VerifyWorkers)
	out, err := e.Ingest(context.Background(), *peer, raw, decode)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range out {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func runCBOR(args []string) error {
	in, err := openInput(firstArg(args))
	if err != nil {
		return err
	}
	defer in.Close()
	b, err := io.ReadAll(in)
	if err != nil {
		return errors.Wrap(err, "read input")
	}
	t, err := codec.DecodeJSON(b)
	if err != nil {
		return err
	}
	out, err := codec.EncodeCBOR(t)
	if err != nil {
		return err
	}
	fmt.Println(base64.StdEncoding.EncodeToString(out))
	return nil
}

func signAndPrint(t *tx.Transaction, s ots.Signer) error {
	if err := t.Sign(s); err != nil {
		return err
	}
	b, err := codec.EncodeJSON(t)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"tx": t.Hash.Hex(), "type": t.Type(), "ots_key": t.OTSKey}).Info("signed")
	_, err = fmt.Println(string(b))
	return err
}

func flagDigest(name, s string) (crypto.Digest, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return crypto.Digest{}, errors.Wrap(err, name)
	}
	d, ok := crypto.DigestFromBytes(b)
	if !ok {
		return d, errors.Errorf("%s: want %d bytes, got %d", name, crypto.DigestSize, len(b))
	}
	return d, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	return f, errors.Wrap(err, "open input")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(b))
	return err
}
