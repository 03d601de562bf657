package codec

import (
	"encoding/base64"
	"strconv"

	"github.com/pkg/errors"

	"stakenode/internal/crypto"
	"stakenode/internal/tx"
)

var errBadLength = errors.New("bad length")

func missing(field string) error { return &tx.DecodeError{Field: field} }

func malformed(field string, err error) error { return &tx.DecodeError{Field: field, Err: err} }

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func b64Digest(d crypto.Digest) string {
	if d.IsZero() {
		return ""
	}
	return b64(d[:])
}

func dec(n uint64) string { return strconv.FormatUint(n, 10) }

func bytesField(field string, s *string) ([]byte, error) {
	if s == nil || *s == "" {
		return nil, missing(field)
	}
	b, err := base64.StdEncoding.DecodeString(*s)
	if err != nil {
		return nil, malformed(field, err)
	}
	return b, nil
}

func digestField(field string, s *string) (crypto.Digest, error) {
	b, err := bytesField(field, s)
	if err != nil {
		return crypto.Digest{}, err
	}
	return digestBytes(field, b)
}

// optDigestField accepts an absent or empty value as the zero digest.
func optDigestField(field, s string) (crypto.Digest, error) {
	if s == "" {
		return crypto.Digest{}, nil
	}
	return digestField(field, &s)
}

func digestBytes(field string, b []byte) (crypto.Digest, error) {
	d, ok := crypto.DigestFromBytes(b)
	if !ok {
		return d, malformed(field, errors.Wrapf(errBadLength, "%d bytes", len(b)))
	}
	return d, nil
}

func optDigestBytes(field string, b []byte) (crypto.Digest, error) {
	if len(b) == 0 {
		return crypto.Digest{}, nil
	}
	return digestBytes(field, b)
}

func addressField(field string, s *string) (crypto.Address, error) {
	b, err := bytesField(field, s)
	if err != nil {
		return "", err
	}
	return crypto.Address(b), nil
}

func uintField(field string, s *string) (uint64, error) {
	if s == nil || *s == "" {
		return 0, missing(field)
	}
	n, err := strconv.ParseUint(*s, 10, 64)
	if err != nil {
		return 0, malformed(field, err)
	}
	return n, nil
}

func optUintField(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return uintField(field, &s)
}

func u64(field string, p *uint64) (uint64, error) {
	if p == nil {
		return 0, missing(field)
	}
	return *p, nil
}

func unsupported(t *tx.Transaction) error {
	return &tx.UnknownVariantError{Tag: t.Type().String()}
}
