package wallet

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/crypto/blake2b"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/models"
)

// ZeroFrontier is the previous-block hash of an account's first block.
const ZeroFrontier = "0000000000000000000000000000000000000000000000000000000000000000"

// LedgerContext carries everything block building needs from the node:
// current balance, frontier, representative and a work token. The wallet
// itself performs no network access.
type LedgerContext struct {
	BalanceRaw     *big.Int
	Frontier       string
	Representative string
	Work           string
}

func (lc *LedgerContext) frontier() string {
	if lc.Frontier == "" {
		return ZeroFrontier
	}
	return lc.Frontier
}

// BuildReceiveBlock produces a signed block claiming one pending inflow.
func (w *Wallet) BuildReceiveBlock(lc LedgerContext, pending models.PendingEntry) (*models.StateBlock, error) {
	amount, err := common.ParseRaw(pending.AmountRaw)
	if err != nil {
		return nil, err
	}

	link, err := hex.DecodeString(pending.Hash)
	if err != nil || len(link) != 32 {
		return nil, errors.Errorf("invalid pending block hash %q", pending.Hash)
	}

	newBalance := new(big.Int).Add(balanceOrZero(lc.BalanceRaw), amount)
	return w.buildBlock(lc, newBalance, link, pending.Hash)
}

// BuildSendBlock produces a signed block transferring amountRaw to the
// destination address.
func (w *Wallet) BuildSendBlock(lc LedgerContext, destination string, amountRaw *big.Int) (*models.StateBlock, error) {
	destinationKey, err := AddressToPublicKey(destination)
	if err != nil {
		return nil, err
	}
	if amountRaw == nil || amountRaw.Sign() <= 0 {
		return nil, errors.Errorf("send amount must be positive")
	}

	newBalance := new(big.Int).Sub(balanceOrZero(lc.BalanceRaw), amountRaw)
	if newBalance.Sign() < 0 {
		return nil, errors.Errorf("send amount exceeds account balance")
	}

	link := strings.ToUpper(hex.EncodeToString(destinationKey))
	return w.buildBlock(lc, newBalance, destinationKey, link)
}

func (w *Wallet) buildBlock(lc LedgerContext, newBalance *big.Int, linkBytes []byte, link string) (*models.StateBlock, error) {
	representative := lc.Representative
	if representative == "" {
		representative = w.Representative()
	}
	representativeKey, err := AddressToPublicKey(representative)
	if err != nil {
		return nil, errors.Errorf("invalid representative %q: %v", representative, err)
	}

	previous, err := hex.DecodeString(lc.frontier())
	if err != nil || len(previous) != 32 {
		return nil, errors.Errorf("invalid frontier %q", lc.Frontier)
	}

	accountKey, err := AddressToPublicKey(w.Address)
	if err != nil {
		return nil, err
	}

	digest := blockDigest(accountKey, previous, representativeKey, newBalance, linkBytes)
	signature := w.signer.Sign(digest)

	return &models.StateBlock{
		Type:           "state",
		Account:        w.Address,
		Previous:       strings.ToUpper(lc.frontier()),
		Representative: representative,
		Balance:        newBalance.String(),
		Link:           strings.ToUpper(link),
		Signature:      strings.ToUpper(hex.EncodeToString(signature)),
		Work:           lc.Work,
	}, nil
}

// blockDigest hashes a state block the way the ledger defines it: a 32-byte
// preamble ending in 0x06, then account, previous, representative, the
// 16-byte big-endian balance and the link.
func blockDigest(account, previous, representative []byte, balance *big.Int, link []byte) []byte {
	preamble := make([]byte, 32)
	preamble[31] = 0x06

	hasher, _ := blake2b.New256(nil)
	hasher.Write(preamble)
	hasher.Write(account)
	hasher.Write(previous)
	hasher.Write(representative)
	hasher.Write(balance.FillBytes(make([]byte, 16)))
	hasher.Write(link)
	return hasher.Sum(nil)
}

func balanceOrZero(balance *big.Int) *big.Int {
	if balance == nil {
		return big.NewInt(0)
	}
	return balance
}
