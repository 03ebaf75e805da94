package services

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/config"
)

// PAYableEnvironmentURLs maps environment names to their IPG endpoint URLs
var PAYableEnvironmentURLs = map[string]string{
	"dev":        "https://payable-ipg-dev.web.app/ipg/dev",
	"sandbox":    "https://sandboxipgpayment.payable.lk/ipg/sandbox",
	"production": "https://ipgpayment.payable.lk/ipg/pro",
}

// PAYableGateway charges tokenized cards through PAYable IPG
type PAYableGateway struct {
	config       config.PaymentConfig
	logger       *logrus.Logger
	client       *http.Client
	endpoint     string
	pollInterval time.Duration
}

// PAYableChargeRequest is the request sent to PAYable.
// merchantToken is never sent; it only feeds the checkValue.
type PAYableChargeRequest struct {
	MerchantKey         string `json:"merchantKey"`
	PaymentType         int    `json:"paymentType"` // 1 = one-time
	InvoiceID           string `json:"invoiceId"`
	Amount              string `json:"amount"`
	CurrencyCode        string `json:"currencyCode"`
	OrderDescription    string `json:"orderDescription,omitempty"`
	CardToken           string `json:"cardToken,omitempty"`
	CustomerFirstName   string `json:"customerFirstName"`
	CustomerLastName    string `json:"customerLastName"`
	CustomerEmail       string `json:"customerEmail"`
	CustomerMobilePhone string `json:"customerMobilePhone"`
	CheckValue          string `json:"checkValue"`
	IntegrationType     string `json:"integrationType"` // Max 20 chars
	IntegrationVersion  string `json:"integrationVersion"`
}

// PAYableChargeResponse is PAYable's answer to a charge
type PAYableChargeResponse struct {
	Status          string `json:"status"`
	UID             string `json:"uid"`
	StatusIndicator string `json:"statusIndicator"`
	TransactionID   string `json:"transactionId,omitempty"`
	Message         string `json:"message,omitempty"`
}

// PAYableStatusRequest represents the request to check payment status
type PAYableStatusRequest struct {
	UID             string `json:"uid"`
	StatusIndicator string `json:"statusIndicator"`
}

// PAYableStatusResponse represents the response from status check
type PAYableStatusResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"` // "pending", "success", "failed", "cancelled"
	Amount        string `json:"amount"`
	InvoiceID     string `json:"invoiceId"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// PAYableVoidRequest reverses a charge
type PAYableVoidRequest struct {
	MerchantKey string `json:"merchantKey"`
	UID         string `json:"uid"`
	CheckValue  string `json:"checkValue"`
}

// NewPAYableGateway creates a PAYable gateway for the configured environment
func NewPAYableGateway(cfg config.PaymentConfig, logger *logrus.Logger) *PAYableGateway {
	endpoint, ok := PAYableEnvironmentURLs[cfg.Environment]
	if !ok {
		endpoint = PAYableEnvironmentURLs["sandbox"]
	}
	return &PAYableGateway{
		config:       cfg,
		logger:       logger,
		client:       &http.Client{Timeout: 30 * time.Second},
		endpoint:     endpoint,
		pollInterval: 2 * time.Second,
	}
}

func (g *PAYableGateway) Name() string { return "payable" }

// IsConfigured returns true if payment gateway is properly configured
func (g *PAYableGateway) IsConfigured() bool {
	return g.config.Configured()
}

// GenerateCheckValue creates the SHA-512 checkValue for PAYable authentication
// Step 1: hash1 = SHA512(merchantToken) uppercase hex
// Step 2: hash2 = SHA512("merchantKey|invoiceId|amount|currencyCode|hash1") uppercase hex
func (g *PAYableGateway) GenerateCheckValue(invoiceID, amount, currencyCode string) string {
	hash1 := sha512.Sum512([]byte(g.config.MerchantToken))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		g.config.MerchantKey,
		invoiceID,
		amount,
		currencyCode,
		hash1Hex,
	)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

// Charge submits the charge and, when PAYable answers PENDING, polls the
// status endpoint until the payment settles or ctx ends
func (g *PAYableGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if !g.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing merchant credentials")
	}

	amount := fmt.Sprintf("%.2f", req.Amount)
	firstName, lastName := splitName(req.Payment.PayerName)
	if lastName == "" {
		lastName = "." // PAYable requires last name
	}

	body := &PAYableChargeRequest{
		MerchantKey:         g.config.MerchantKey,
		PaymentType:         1,
		InvoiceID:           req.InvoiceID,
		Amount:              amount,
		CurrencyCode:        req.Currency,
		OrderDescription:    req.Description,
		CardToken:           req.Payment.CardToken,
		CustomerFirstName:   firstName,
		CustomerLastName:    lastName,
		CustomerEmail:       req.Payment.PayerEmail,
		CustomerMobilePhone: req.Payment.PayerPhone,
		CheckValue:          g.GenerateCheckValue(req.InvoiceID, amount, req.Currency),
		IntegrationType:     "SmartTransit",
		IntegrationVersion:  "1.0.0",
	}

	g.logger.WithFields(logrus.Fields{
		"invoice_id": req.InvoiceID,
		"amount":     amount,
		"currency":   req.Currency,
	}).Info("Submitting PAYable charge")

	var resp PAYableChargeResponse
	if err := g.post(ctx, g.endpoint, body, &resp); err != nil {
		return nil, err
	}

	switch strings.ToUpper(resp.Status) {
	case "SUCCESS":
		return &ChargeResult{TransactionID: resp.UID, Gateway: g.Name()}, nil
	case "PENDING":
		return g.awaitSettlement(ctx, resp.UID, resp.StatusIndicator)
	default:
		reason := resp.Message
		if reason == "" {
			reason = "status " + resp.Status
		}
		return nil, &PaymentFailedError{Gateway: g.Name(), Reason: reason}
	}
}

func (g *PAYableGateway) awaitSettlement(ctx context.Context, uid, statusIndicator string) (*ChargeResult, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := g.CheckStatus(ctx, uid, statusIndicator)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.WithError(err).WithField("uid", uid).Warn("PAYable status check failed, retrying")
			continue
		}

		switch strings.ToLower(status.PaymentStatus) {
		case "success":
			return &ChargeResult{TransactionID: uid, Gateway: g.Name()}, nil
		case "failed", "cancelled":
			reason := status.Message
			if reason == "" {
				reason = "payment " + strings.ToLower(status.PaymentStatus)
			}
			return nil, &PaymentFailedError{Gateway: g.Name(), Reason: reason}
		}
	}
}

// CheckStatus queries the current status of a payment
func (g *PAYableGateway) CheckStatus(ctx context.Context, uid, statusIndicator string) (*PAYableStatusResponse, error) {
	statusURL := strings.Replace(g.endpoint, "/ipg/", "/check-status/", 1)

	var resp PAYableStatusResponse
	if err := g.post(ctx, statusURL, &PAYableStatusRequest{UID: uid, StatusIndicator: statusIndicator}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Void reverses an approved charge
func (g *PAYableGateway) Void(ctx context.Context, transactionID string) error {
	voidURL := strings.Replace(g.endpoint, "/ipg/", "/void/", 1)
	req := &PAYableVoidRequest{
		MerchantKey: g.config.MerchantKey,
		UID:         transactionID,
		CheckValue:  g.GenerateCheckValue(transactionID, "0.00", g.config.Currency),
	}

	var resp PAYableChargeResponse
	if err := g.post(ctx, voidURL, req, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "success") {
		return fmt.Errorf("void rejected: %s", resp.Message)
	}

	g.logger.WithField("uid", transactionID).Info("PAYable charge voided")
	return nil
}

func (g *PAYableGateway) post(ctx context.Context, url string, in, out interface{}) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		g.logger.WithError(err).Error("Failed to call PAYable endpoint")
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		g.logger.WithFields(logrus.Fields{
			"body":  string(body),
			"error": err.Error(),
		}).Error("Failed to parse PAYable response")
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// splitName splits a full name into first and last name
func splitName(fullName string) (firstName, lastName string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Customer", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
