package wallet

import (
	"crypto/ed25519"
)

// Signer is the signing capability of a wallet. Validation of everything fed
// into a block happens before this boundary; signing itself cannot fail on
// valid key material.
type Signer interface {
	Sign(digest []byte) []byte
	Public() []byte
}

type edSigner struct {
	priv ed25519.PrivateKey
}

func newEdSigner(secret []byte) *edSigner {
	return &edSigner{priv: ed25519.NewKeyFromSeed(secret)}
}

func (s *edSigner) Sign(digest []byte) []byte {
	return ed25519.Sign(s.priv, digest)
}

func (s *edSigner) Public() []byte {
	return s.priv.Public().(ed25519.PublicKey)
}
