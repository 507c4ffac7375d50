package gateway

import (
	"math/big"
	"time"

	"github.com/go-errors/errors"
	"github.com/rs/xid"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/wallet"
)

// DefaultPollInterval is deliberately coarse: well under typical node rate
// limits while still responsive enough for an interactive checkout.
const DefaultPollInterval = 7 * time.Second

type Config struct {
	// Seed plus Index select the receiving account deterministically. An
	// empty Seed derives a fresh random account.
	Seed  string
	Index uint32

	Timeout     time.Duration
	Destination string

	// PollInterval overrides DefaultPollInterval, mainly for tests.
	PollInterval time.Duration
}

// Create validates the configuration and builds an Idle payment session for
// the given display-unit amount. Validation failures surface as
// ConfigurationError before any network call is made.
func Create(cfg Config, amount float64, client LedgerClient) (*Payment, error) {
	if client == nil {
		return nil, &common.ConfigurationError{Field: "client", Err: errors.Errorf("ledger client is required")}
	}
	if !wallet.ValidateAddress(cfg.Destination) {
		return nil, &common.ConfigurationError{Field: "destination", Err: errors.Errorf("not a valid address")}
	}
	if cfg.Timeout <= 0 {
		return nil, &common.ConfigurationError{Field: "timeout", Err: errors.Errorf("must be positive")}
	}

	requestedRaw, err := common.NanoToRaw(amount)
	if err != nil {
		return nil, &common.ConfigurationError{Field: "amount", Err: err}
	}
	if requestedRaw.Sign() <= 0 {
		return nil, &common.ConfigurationError{Field: "amount", Err: errors.Errorf("must be positive")}
	}

	seed := cfg.Seed
	if seed == "" {
		seed, err = wallet.GenerateSeed()
		if err != nil {
			return nil, err
		}
	}
	w, err := wallet.NewFromSeed(seed, cfg.Index)
	if err != nil {
		return nil, &common.ConfigurationError{Field: "seed", Err: err}
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Payment{
		Id:           xid.New().String(),
		Destination:  cfg.Destination,
		wallet:       w,
		client:       client,
		requestedRaw: requestedRaw,
		timeout:      cfg.Timeout,
		pollInterval: pollInterval,
		tracer:       common.CreateTracer("gateway"),
		status:       StatusIdle,
		observedRaw:  big.NewInt(0),
		kick:         make(chan struct{}, 1),
		errs:         make(chan error, 16),
	}, nil
}

// Start is an alias for payment.Start, mirroring the create/start pairing of
// the public surface.
func Start(payment *Payment, onSuccess CallbackFunc, onTimeout CallbackFunc) error {
	return payment.Start(onSuccess, onTimeout)
}
