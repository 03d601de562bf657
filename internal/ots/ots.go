// Package ots binds transactions to a stateful hash-based one-time signature
// scheme. Each leaf index of a key tree signs exactly one message; the package
// does not remember which indexes were spent, callers do.
package ots

// Signer is a key-tree handle able to sign with a chosen leaf.
type Signer interface {
	PublicKey() []byte
	// Index is the next unused leaf according to the handle's owner.
	Index() uint32
	Sign(index uint32, msg []byte) ([]byte, error)
}

// Verifier checks a one-time signature over msg produced with leaf index.
type Verifier interface {
	Verify(pk []byte, index uint32, msg, sig []byte) bool
}
