package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

// ChargeRequest is one charge against a commuter's payment method
type ChargeRequest struct {
	InvoiceID   string
	Amount      float64
	Currency    string
	Description string
	Payment     models.PaymentDetails
}

// ChargeResult identifies an approved charge
type ChargeResult struct {
	TransactionID string
	Gateway       string
}

// PaymentGateway charges and voids payments. Charge must honour ctx
// cancellation; a declined charge returns a *PaymentFailedError.
type PaymentGateway interface {
	Name() string
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Void(ctx context.Context, transactionID string) error
}

// DeclineMethod makes the sandbox gateway decline a charge
const DeclineMethod = "decline"

// SandboxGateway approves every charge unless the payment method is
// DeclineMethod. It keeps charges in memory so voids can be verified.
type SandboxGateway struct {
	Latency time.Duration

	mu      sync.Mutex
	charges map[string]float64
	voided  map[string]bool
}

// NewSandboxGateway creates a sandbox gateway
func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		charges: make(map[string]float64),
		voided:  make(map[string]bool),
	}
}

func (g *SandboxGateway) Name() string { return "sandbox" }

// Charge approves the charge after Latency unless ctx ends first
func (g *SandboxGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if g.Latency > 0 {
		timer := time.NewTimer(g.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if strings.EqualFold(req.Payment.Method, DeclineMethod) {
		return nil, &PaymentFailedError{Gateway: g.Name(), Reason: "card declined"}
	}
	if req.Amount <= 0 {
		return nil, &PaymentFailedError{Gateway: g.Name(), Reason: "amount must be positive"}
	}

	txID := "SBX-" + uuid.New().String()
	g.mu.Lock()
	g.charges[txID] = req.Amount
	g.mu.Unlock()

	return &ChargeResult{TransactionID: txID, Gateway: g.Name()}, nil
}

// Void reverses an earlier charge
func (g *SandboxGateway) Void(ctx context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.charges[transactionID]; !ok {
		return fmt.Errorf("unknown transaction %s", transactionID)
	}
	g.voided[transactionID] = true
	return nil
}

// Charged returns the number of approved charges
func (g *SandboxGateway) Charged() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

// Voided reports whether a transaction was voided
func (g *SandboxGateway) Voided(transactionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.voided[transactionID]
}

// VoidCount returns the number of voided charges
func (g *SandboxGateway) VoidCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.voided)
}

// NewPaymentGateway picks the PAYable gateway when merchant credentials are
// configured and the sandbox otherwise
func NewPaymentGateway(cfg config.PaymentConfig, logger *logrus.Logger) PaymentGateway {
	if cfg.Configured() {
		return NewPAYableGateway(cfg, logger)
	}
	logger.Warn("PAYable credentials not configured, using sandbox payment gateway")
	return NewSandboxGateway()
}
