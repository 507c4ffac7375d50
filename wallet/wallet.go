package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/crypto/blake2b"

	"xnopay.com/payment-gateway/common"
)

// DefaultRepresentative is used for accounts that have no representative of
// their own yet, which is every freshly derived gateway account.
const DefaultRepresentative = "nano_1b9wguhh39at8qtm93oghd6r4f4ubk7zmqc9oi5ape6yyz4s1gamuwn3jjit"

var hexKeyPattern = regexp.MustCompile(`^[0-9A-Fa-f]{64}$`)

// Wallet owns one account's keypair and its signing capability. It never
// talks to the network; all ledger context for block building is supplied by
// the caller.
type Wallet struct {
	Address   string
	PublicKey string

	signer         Signer
	representative string
}

// GenerateSeed returns a random 64-character hex seed.
func GenerateSeed() (string, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return "", errors.Wrap(err, 0)
	}
	return strings.ToUpper(hex.EncodeToString(seed)), nil
}

// NewFromSeed deterministically derives the account at the given index of a
// seed: the private key is blake2b-256 over seed bytes plus the big-endian
// index.
func NewFromSeed(seed string, index uint32) (*Wallet, error) {
	if !hexKeyPattern.MatchString(seed) {
		return nil, &common.InvalidCredentialError{
			Field: "seed",
			Err:   errors.Errorf("must be a 64 character hex string"),
		}
	}

	seedBytes, err := hex.DecodeString(seed)
	if err != nil {
		return nil, &common.InvalidCredentialError{Field: "seed", Err: err}
	}

	indexBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(indexBytes, index)

	secret := blake2b.Sum256(append(seedBytes, indexBytes...))
	return newFromSecret(secret[:])
}

// NewFromKey builds a wallet from an existing private key and its address.
// The address must match the key; a mismatch means the caller is holding
// credentials for a different account and must never get a usable wallet.
func NewFromKey(privateKey string, address string) (*Wallet, error) {
	if !hexKeyPattern.MatchString(privateKey) {
		return nil, &common.InvalidCredentialError{
			Field: "privateKey",
			Err:   errors.Errorf("must be a 64 character hex string"),
		}
	}
	if !ValidateAddress(address) {
		return nil, &common.InvalidCredentialError{
			Field: "address",
			Err:   errors.Errorf("not a valid address"),
		}
	}

	secret, err := hex.DecodeString(privateKey)
	if err != nil {
		return nil, &common.InvalidCredentialError{Field: "privateKey", Err: err}
	}

	wallet, err := newFromSecret(secret)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(wallet.Address, address) {
		return nil, &common.InvalidCredentialError{
			Field: "address",
			Err:   errors.Errorf("address does not belong to the given key"),
		}
	}
	return wallet, nil
}

func newFromSecret(secret []byte) (*Wallet, error) {
	signer := newEdSigner(secret)
	publicKey := signer.Public()

	address, err := PublicKeyToAddress(publicKey)
	if err != nil {
		return nil, &common.InvalidCredentialError{Field: "publicKey", Err: err}
	}

	return &Wallet{
		Address:   address,
		PublicKey: strings.ToUpper(hex.EncodeToString(publicKey)),
		signer:    signer,
	}, nil
}

// Representative returns the cached representative, falling back to the
// well-known default when none has been fetched.
func (w *Wallet) Representative() string {
	if w.representative == "" {
		return DefaultRepresentative
	}
	return w.representative
}

// SetRepresentative caches the representative fetched from the node.
func (w *Wallet) SetRepresentative(representative string) {
	w.representative = representative
}
