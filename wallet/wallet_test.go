package wallet

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/models"
)

const testSeed = "0000000000000000000000000000000000000000000000000000000000000001"

func TestNewFromSeedDeterministic(t *testing.T) {
	assert := assert.New(t)

	first, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)
	second, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)

	assert.Equal(first.Address, second.Address)
	assert.Equal(first.PublicKey, second.PublicKey)
	assert.True(ValidateAddress(first.Address))
}

func TestNewFromSeedIndexesDiffer(t *testing.T) {
	assert := assert.New(t)

	first, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)
	second, err := NewFromSeed(testSeed, 1)
	assert.NoError(err)

	assert.NotEqual(first.Address, second.Address)
}

func TestGenerateSeedDistinctAccounts(t *testing.T) {
	assert := assert.New(t)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		seed, err := GenerateSeed()
		assert.NoError(err)
		assert.Regexp("^[0-9A-F]{64}$", seed)

		w, err := NewFromSeed(seed, 0)
		assert.NoError(err)
		assert.False(seen[w.Address], "derived the same address twice")
		seen[w.Address] = true
	}
}

func TestNewFromSeedRejectsMalformedSeed(t *testing.T) {
	assert := assert.New(t)

	for _, seed := range []string{"", "abc", strings.Repeat("g", 64), testSeed + "00"} {
		_, err := NewFromSeed(seed, 0)
		assert.Error(err)
		var credErr *common.InvalidCredentialError
		assert.ErrorAs(err, &credErr)
	}
}

func TestNewFromKeyMismatchedAddress(t *testing.T) {
	assert := assert.New(t)

	w, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)
	other, err := NewFromSeed(testSeed, 1)
	assert.NoError(err)

	// A valid key against another account's address must never produce a
	// usable-looking wallet.
	_, err = NewFromKey(strings.Repeat("AB", 32), w.Address)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	_, err = NewFromKey("zz", other.Address)
	assert.Error(err)
}

func TestBuildReceiveBlockFirstBlock(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	w, err := NewFromSeed(testSeed, 0)
	require.NoError(err)

	pendingHash := strings.Repeat("AB", 32)
	block, err := w.BuildReceiveBlock(LedgerContext{
		BalanceRaw: big.NewInt(0),
		Frontier:   "",
		Work:       "2bf29ef00786a6bc",
	}, models.PendingEntry{
		Hash:      pendingHash,
		Source:    w.Address,
		AmountRaw: "200000000000000000000000000",
	})
	require.NoError(err)

	assert.Equal("state", block.Type)
	assert.Equal(w.Address, block.Account)
	assert.Equal(ZeroFrontier, block.Previous)
	assert.Equal("200000000000000000000000000", block.Balance)
	assert.Equal(pendingHash, block.Link)
	assert.Equal(DefaultRepresentative, block.Representative)
	assert.Equal("2bf29ef00786a6bc", block.Work)
	assert.Regexp("^[0-9A-F]{128}$", block.Signature)
}

func TestBuildSendBlock(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	w, err := NewFromSeed(testSeed, 0)
	require.NoError(err)
	destination, err := NewFromSeed(testSeed, 1)
	require.NoError(err)

	balance, _ := new(big.Int).SetString("500000000000000000000000000", 10)
	amount, _ := new(big.Int).SetString("200000000000000000000000000", 10)
	frontier := strings.Repeat("CD", 32)

	block, err := w.BuildSendBlock(LedgerContext{
		BalanceRaw: balance,
		Frontier:   frontier,
		Work:       "2bf29ef00786a6bc",
	}, destination.Address, amount)
	require.NoError(err)

	assert.Equal(frontier, block.Previous)
	assert.Equal("300000000000000000000000000", block.Balance)
	assert.Equal(destination.PublicKey, block.Link)
	assert.Regexp("^[0-9A-F]{128}$", block.Signature)
}

func TestBuildSendBlockOverdraw(t *testing.T) {
	assert := assert.New(t)

	w, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)
	destination, err := NewFromSeed(testSeed, 1)
	assert.NoError(err)

	_, err = w.BuildSendBlock(LedgerContext{
		BalanceRaw: big.NewInt(100),
		Frontier:   strings.Repeat("CD", 32),
		Work:       "2bf29ef00786a6bc",
	}, destination.Address, big.NewInt(101))
	assert.Error(err)
}

func TestRepresentativeFallback(t *testing.T) {
	assert := assert.New(t)

	w, err := NewFromSeed(testSeed, 0)
	assert.NoError(err)
	assert.Equal(DefaultRepresentative, w.Representative())

	w.SetRepresentative(knownAddress)
	assert.Equal(knownAddress, w.Representative())
}
