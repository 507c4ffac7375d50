package wallet

import (
	"math/big"
	"strings"

	"github.com/go-errors/errors"
	"golang.org/x/crypto/blake2b"
)

// The ledger's base32 alphabet. Unlike RFC 4648 it drops the characters that
// are easy to misread (0, 2, l, v).
const addressAlphabet = "13456789abcdefghijkmnopqrstuwxyz"

const (
	addressPrefix       = "nano_"
	legacyAddressPrefix = "xrb_"
	addressBodyLength   = 52
	checksumLength      = 8
)

var alphabetIndex = func() map[byte]uint {
	index := make(map[byte]uint, len(addressAlphabet))
	for i := 0; i < len(addressAlphabet); i++ {
		index[addressAlphabet[i]] = uint(i)
	}
	return index
}()

// PublicKeyToAddress encodes a 32-byte public key as an address: the key as
// 52 base32 characters (4 leading zero bits of padding) followed by an
// 8-character checksum over the reversed 5-byte blake2b digest of the key.
func PublicKeyToAddress(publicKey []byte) (string, error) {
	if len(publicKey) != 32 {
		return "", errors.Errorf("public key must be 32 bytes, got %d", len(publicKey))
	}

	body := encodeBase32(new(big.Int).SetBytes(publicKey), addressBodyLength)
	checksum := addressChecksum(publicKey)

	return addressPrefix + body + encodeBase32(new(big.Int).SetBytes(checksum), checksumLength), nil
}

// AddressToPublicKey decodes and verifies an address, returning the 32-byte
// public key. Both nano_ and the legacy xrb_ prefix are accepted.
func AddressToPublicKey(address string) ([]byte, error) {
	body := ""
	switch {
	case strings.HasPrefix(address, addressPrefix):
		body = address[len(addressPrefix):]
	case strings.HasPrefix(address, legacyAddressPrefix):
		body = address[len(legacyAddressPrefix):]
	default:
		return nil, errors.Errorf("address has no valid prefix")
	}

	if len(body) != addressBodyLength+checksumLength {
		return nil, errors.Errorf("address has invalid length")
	}

	keyValue, err := decodeBase32(body[:addressBodyLength])
	if err != nil {
		return nil, err
	}
	if keyValue.BitLen() > 256 {
		return nil, errors.Errorf("address encodes more than 256 key bits")
	}
	publicKey := keyValue.FillBytes(make([]byte, 32))

	checksumValue, err := decodeBase32(body[addressBodyLength:])
	if err != nil {
		return nil, err
	}
	checksum := checksumValue.FillBytes(make([]byte, 5))

	expected := addressChecksum(publicKey)
	for i := range expected {
		if expected[i] != checksum[i] {
			return nil, errors.Errorf("address checksum mismatch")
		}
	}
	return publicKey, nil
}

// ValidateAddress reports whether the address is well formed, including its
// checksum.
func ValidateAddress(address string) bool {
	_, err := AddressToPublicKey(address)
	return err == nil
}

func addressChecksum(publicKey []byte) []byte {
	hasher, _ := blake2b.New(5, nil)
	hasher.Write(publicKey)
	digest := hasher.Sum(nil)
	for i, j := 0, len(digest)-1; i < j; i, j = i+1, j-1 {
		digest[i], digest[j] = digest[j], digest[i]
	}
	return digest
}

func encodeBase32(value *big.Int, length int) string {
	out := make([]byte, length)
	mask := big.NewInt(31)
	group := new(big.Int)
	for i := 0; i < length; i++ {
		shift := uint(5 * (length - 1 - i))
		group.Rsh(value, shift)
		group.And(group, mask)
		out[i] = addressAlphabet[group.Uint64()]
	}
	return string(out)
}

func decodeBase32(s string) (*big.Int, error) {
	value := new(big.Int)
	for i := 0; i < len(s); i++ {
		index, ok := alphabetIndex[s[i]]
		if !ok {
			return nil, errors.Errorf("invalid address character %q", s[i])
		}
		value.Lsh(value, 5)
		value.Or(value, new(big.Int).SetUint64(uint64(index)))
	}
	return value, nil
}
