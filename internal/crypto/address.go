package crypto

import (
	"encoding/hex"
	"strings"
)

const (
	AddressPrefix = "Q"
	checksumSize  = 4
	// AddressLen is prefix + hex(sha256) + hex(checksum).
	AddressLen = len(AddressPrefix) + 2*DigestSize + 2*checksumSize
)

// Address is the textual account identity carried in every transaction.
type Address string

// DeriveAddress maps a public key to its address:
// "Q" || hex(H(pk)) || hex(H(H(pk))[:4]).
func DeriveAddress(pk []byte) Address {
	h := Sum(pk)
	chk := Sum(h[:])
	var sb strings.Builder
	sb.Grow(AddressLen)
	sb.WriteString(AddressPrefix)
	sb.WriteString(hex.EncodeToString(h[:]))
	sb.WriteString(hex.EncodeToString(chk[:checksumSize]))
	return Address(sb.String())
}

// ValidAddress reports whether a is well formed and its checksum matches.
func ValidAddress(a Address) bool {
	s := string(a)
	if len(s) != AddressLen || !strings.HasPrefix(s, AddressPrefix) {
		return false
	}
	body, err := hex.DecodeString(s[len(AddressPrefix):])
	if err != nil {
		return false
	}
	chk := Sum(body[:DigestSize])
	return string(chk[:checksumSize]) == string(body[DigestSize:])
}

func (a Address) Bytes() []byte { return []byte(a) }

func (a Address) String() string { return string(a) }
