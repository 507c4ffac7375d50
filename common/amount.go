package common

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// The ledger counts in raw, an indivisible integer unit. 1 NANO = 10^30 raw.
// Conversion happens exactly once at the session/wallet boundary; the RPC
// layer only ever sees raw.
const rawDigits = 30

var rawPerNano = new(big.Int).Exp(big.NewInt(10), big.NewInt(rawDigits), nil)

// NanoToRaw converts a display-unit amount to raw. The conversion goes
// through the shortest decimal representation of the float so that amounts
// like 0.0002 map to exactly 2*10^26 raw instead of picking up binary
// representation error.
func NanoToRaw(amount float64) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, errors.Errorf("amount must be a finite number")
	}
	if amount < 0 {
		return nil, errors.Errorf("amount must not be negative")
	}

	text := strconv.FormatFloat(amount, 'f', -1, 64)

	whole := text
	frac := ""
	if i := strings.IndexByte(text, '.'); i >= 0 {
		whole, frac = text[:i], text[i+1:]
	}
	if len(frac) > rawDigits {
		return nil, errors.Errorf("amount %s exceeds raw precision", text)
	}
	frac += strings.Repeat("0", rawDigits-len(frac))

	raw, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, errors.Errorf("cannot parse amount %s", text)
	}
	return raw, nil
}

// RawToNano converts a raw amount to the display unit. The result is only
// used for reporting and threshold display; all comparisons happen in raw.
func RawToNano(raw *big.Int) float64 {
	f := new(big.Float).SetInt(raw)
	f.Quo(f, new(big.Float).SetInt(rawPerNano))
	out, _ := f.Float64()
	return out
}

// ParseRaw parses a raw amount string as reported by the node.
func ParseRaw(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok || raw.Sign() < 0 {
		return nil, errors.Errorf("invalid raw amount %q", s)
	}
	return raw, nil
}
