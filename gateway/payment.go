package gateway

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"go.opentelemetry.io/otel/api/trace"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/models"
	"xnopay.com/payment-gateway/wallet"
)

type Status int32

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusSucceeded:
		return "Succeeded"
	case StatusTimedOut:
		return "TimedOut"
	}
	return "Unknown"
}

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusTimedOut
}

type CallbackFunc func(*Payment)

// Payment is one collection session: it owns a fresh account, polls the node
// for inbound funds, forwards the requested amount to the destination once
// it has arrived and returns anything beyond that to the payer. Polling
// alone is sufficient for correctness; push confirmations only shorten
// latency via Nudge.
type Payment struct {
	Id          string
	Destination string

	wallet       *wallet.Wallet
	client       LedgerClient
	requestedRaw *big.Int
	timeout      time.Duration
	pollInterval time.Duration
	tracer       trace.Tracer

	mu          sync.Mutex
	status      Status
	observedRaw *big.Int
	lastPayer   string
	startTime   time.Time
	cancel      context.CancelFunc

	// kick lets the confirmation subscriber trigger an out-of-cycle poll.
	kick chan struct{}
	errs chan error
}

func (p *Payment) Address() string {
	return p.wallet.Address
}

func (p *Payment) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Payment) RequestedAmount() float64 {
	return common.RawToNano(p.requestedRaw)
}

func (p *Payment) ObservedAmount() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return common.RawToNano(p.observedRaw)
}

// Errors delivers transient per-tick failures and post-resolution settlement
// warnings. The channel is buffered; when nobody listens, entries are
// dropped after being logged.
func (p *Payment) Errors() <-chan error {
	return p.errs
}

// Start transitions the session from Idle to Running and begins polling.
// Each callback fires at most once; calling Start twice is an error.
func (p *Payment) Start(onSuccess CallbackFunc, onTimeout CallbackFunc) error {
	p.mu.Lock()
	if p.status != StatusIdle {
		p.mu.Unlock()
		return errors.Errorf("payment %s already started", p.Id)
	}
	p.status = StatusRunning
	p.startTime = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx, onSuccess, onTimeout)
	return nil
}

// Stop halts polling without resolving the session. A session already in a
// terminal state is unaffected.
func (p *Payment) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Nudge requests an out-of-cycle poll, typically on a push confirmation for
// the session's address. It never blocks and is safe on resolved sessions.
func (p *Payment) Nudge() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Payment) run(ctx context.Context, onSuccess CallbackFunc, onTimeout CallbackFunc) {
	defer p.Stop()

	// Fetch the representative once per session. A failure here is harmless,
	// the well-known default stands in.
	if rep, err := p.client.AccountRepresentative(ctx, p.wallet.Address); err == nil && rep != "" {
		p.wallet.SetRepresentative(rep)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Ticks are serialized by construction: the next one cannot start until
	// this loop iteration, network calls included, has finished.
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		if p.tick(ctx, onSuccess, onTimeout) {
			return
		}
	}
}

// tick runs one poll cycle and reports whether the session resolved.
func (p *Payment) tick(ctx context.Context, onSuccess CallbackFunc, onTimeout CallbackFunc) bool {
	p.mu.Lock()
	elapsed := time.Since(p.startTime)
	p.mu.Unlock()

	if elapsed >= p.timeout {
		p.resolveTimeout(ctx, onTimeout)
		return true
	}

	pending, err := p.client.Pending(ctx, p.wallet.Address)
	if err != nil {
		p.reportError(errors.Errorf("poll failed, retrying next tick: %v", err))
		return false
	}

	total := big.NewInt(0)
	for _, entry := range pending {
		amount, err := common.ParseRaw(entry.AmountRaw)
		if err != nil {
			p.reportError(err)
			return false
		}
		total.Add(total, amount)
	}

	// The observed amount is always the full recomputed pending total, never
	// an increment, so re-observing a superset of earlier entries cannot
	// double-count.
	lastPayer := p.Destination
	if len(pending) > 0 && pending[len(pending)-1].Source != "" {
		lastPayer = pending[len(pending)-1].Source
	}
	p.mu.Lock()
	p.observedRaw = total
	p.lastPayer = lastPayer
	p.mu.Unlock()

	if total.Cmp(p.requestedRaw) < 0 {
		return false
	}

	p.resolveSuccess(ctx, onSuccess, pending, total)
	return true
}

func (p *Payment) resolveSuccess(ctx context.Context, onSuccess CallbackFunc, pending []models.PendingEntry, total *big.Int) {
	_, span := p.tracer.Start(ctx, "gateway-settle "+p.Id)
	defer span.End()

	if err := p.receiveAll(ctx, pending); err != nil {
		p.reportError(&common.SettlementError{Stage: "receive", Err: err})
	}
	if err := p.sendAmount(ctx, p.Destination, p.requestedRaw); err != nil {
		p.reportError(&common.SettlementError{Stage: "settle", Err: err})
	}

	p.setStatus(StatusSucceeded)
	log.Infof("payment %s settled: %s to %s", p.Id, p.requestedRaw.String(), p.Destination)
	if onSuccess != nil {
		onSuccess(p)
	}

	// Best effort from here on: the success outcome stands even when the
	// change cannot be returned.
	change := new(big.Int).Sub(total, p.requestedRaw)
	if change.Sign() > 0 {
		if err := p.sendAmount(ctx, p.lastPayerAddress(), change); err != nil {
			p.reportError(&common.SettlementError{Stage: "sweep", Err: err})
		}
	}
}

func (p *Payment) resolveTimeout(ctx context.Context, onTimeout CallbackFunc) {
	_, span := p.tracer.Start(ctx, "gateway-timeout "+p.Id)
	defer span.End()

	p.mu.Lock()
	observed := p.observedRaw
	p.mu.Unlock()

	// Funds arrived but were insufficient or too late. They belong to the
	// payer in full, so claim everything and sweep the whole balance back.
	if observed.Sign() > 0 {
		pending, err := p.client.Pending(ctx, p.wallet.Address)
		if err != nil {
			p.reportError(&common.SettlementError{Stage: "receive", Err: err})
		} else if err := p.receiveAll(ctx, pending); err != nil {
			p.reportError(&common.SettlementError{Stage: "receive", Err: err})
		}
		if err := p.sendAll(ctx, p.lastPayerAddress()); err != nil {
			p.reportError(&common.SettlementError{Stage: "sweep", Err: err})
		}
	}

	p.setStatus(StatusTimedOut)
	log.Infof("payment %s timed out after %s", p.Id, p.timeout)
	if onTimeout != nil {
		onTimeout(p)
	}
}

// receiveAll claims every listed pending inflow, one block per entry. Each
// block needs the account state left behind by the previous one, so account
// info and work are fetched fresh per entry.
func (p *Payment) receiveAll(ctx context.Context, pending []models.PendingEntry) error {
	for _, entry := range pending {
		info, err := p.client.AccountInfo(ctx, p.wallet.Address)
		if err != nil {
			return err
		}
		balance, err := common.ParseRaw(info.Balance)
		if err != nil {
			return err
		}

		workInput := info.Frontier
		if workInput == "" {
			// First block of the account: work is computed on the public key.
			workInput = p.wallet.PublicKey
		}
		work, err := p.client.GenerateWork(ctx, workInput)
		if err != nil {
			return err
		}

		block, err := p.wallet.BuildReceiveBlock(wallet.LedgerContext{
			BalanceRaw: balance,
			Frontier:   info.Frontier,
			Work:       work,
		}, entry)
		if err != nil {
			return err
		}

		if _, err := p.client.Process(ctx, block, models.BlockSubtypeReceive); err != nil {
			return err
		}
	}
	return nil
}

func (p *Payment) sendAmount(ctx context.Context, destination string, amountRaw *big.Int) error {
	info, err := p.client.AccountInfo(ctx, p.wallet.Address)
	if err != nil {
		return err
	}
	if info.Frontier == "" {
		return errors.Errorf("account %s has no confirmed balance to send from", p.wallet.Address)
	}
	balance, err := common.ParseRaw(info.Balance)
	if err != nil {
		return err
	}

	work, err := p.client.GenerateWork(ctx, info.Frontier)
	if err != nil {
		return err
	}

	block, err := p.wallet.BuildSendBlock(wallet.LedgerContext{
		BalanceRaw: balance,
		Frontier:   info.Frontier,
		Work:       work,
	}, destination, amountRaw)
	if err != nil {
		return err
	}

	_, err = p.client.Process(ctx, block, models.BlockSubtypeSend)
	return err
}

// sendAll sweeps the account's entire balance to the destination.
func (p *Payment) sendAll(ctx context.Context, destination string) error {
	info, err := p.client.AccountInfo(ctx, p.wallet.Address)
	if err != nil {
		return err
	}
	balance, err := common.ParseRaw(info.Balance)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return nil
	}
	return p.sendAmount(ctx, destination, balance)
}

func (p *Payment) lastPayerAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPayer == "" {
		return p.Destination
	}
	return p.lastPayer
}

func (p *Payment) setStatus(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.Terminal() {
		return
	}
	p.status = status
}

func (p *Payment) reportError(err error) {
	log.Warnf("payment %s: %s", p.Id, err.Error())
	select {
	case p.errs <- err:
	default:
	}
}
