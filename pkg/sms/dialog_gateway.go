// Package sms sends booking texts through the Dialog eSMS API.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/pkg/validator"
	"golang.org/x/sync/singleflight"
)

// tokenSkew retires a token this long before Dialog does
const tokenSkew = 5 * time.Minute

// DialogConfig holds configuration for Dialog SMS Gateway
type DialogConfig struct {
	APIURL   string
	Username string
	Password string
	Mask     string
	Logger   *logrus.Logger
}

// DialogGateway is an eSMS client. The access token is shared by all
// senders and concurrent refreshes collapse into one login.
type DialogGateway struct {
	cfg    DialogConfig
	client *http.Client
	logger *logrus.Logger
	logins singleflight.Group

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewDialogGateway creates a new Dialog SMS Gateway client
func NewDialogGateway(cfg DialogConfig) *DialogGateway {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &DialogGateway{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /login. Expiration is in seconds.
type LoginResponse struct {
	Status     string `json:"status"`
	Comment    string `json:"comment"`
	Token      string `json:"token"`
	Expiration int    `json:"expiration"`
	ErrCode    string `json:"errCode"`
}

// SMSRecipient is a single MSISDN
type SMSRecipient struct {
	Mobile string `json:"mobile"`
}

// SendSMSRequest is the body of POST /sms
type SendSMSRequest struct {
	MSISDN        []SMSRecipient `json:"msisdn"`
	Message       string         `json:"message"`
	SourceAddress string         `json:"sourceAddress,omitempty"`
	TransactionID int64          `json:"transaction_id"`
	PaymentMethod int            `json:"payment_method,omitempty"` // 0 = wallet, 4 = package
}

// SendSMSResponse is returned by POST /sms
type SendSMSResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Data    struct {
		CampaignID   int     `json:"campaignId"`
		CampaignCost float64 `json:"campaignCost"`
	} `json:"data"`
	ErrCode string `json:"errCode"`
}

// FormatPhoneForDialog converts a mobile number to the 9 digit form Dialog
// expects, e.g. 0771234567 and +94771234567 both become 771234567.
func FormatPhoneForDialog(phone string) (string, error) {
	normalized, err := validator.NormalizePhone(phone)
	if err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", phone, err)
	}
	return normalized[1:], nil
}

// SendMessage texts one phone number and returns the campaign transaction id
func (d *DialogGateway) SendMessage(ctx context.Context, phone, message string) (int64, error) {
	mobile, err := FormatPhoneForDialog(phone)
	if err != nil {
		return 0, err
	}

	token, err := d.accessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("dialog login: %w", err)
	}

	// unique per campaign
	transactionID := time.Now().UnixMicro()

	var resp SendSMSResponse
	err = d.post(ctx, "/sms", token, SendSMSRequest{
		MSISDN:        []SMSRecipient{{Mobile: mobile}},
		Message:       message,
		SourceAddress: d.cfg.Mask,
		TransactionID: transactionID,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Status != "success" {
		return 0, fmt.Errorf("SMS sending failed: %s (error code: %s)", resp.Comment, resp.ErrCode)
	}

	d.logger.WithFields(logrus.Fields{
		"transaction_id": transactionID,
		"campaign_id":    resp.Data.CampaignID,
		"cost":           resp.Data.CampaignCost,
		"network":        validator.MobileNetwork("0" + mobile),
	}).Info("SMS sent via Dialog")

	return transactionID, nil
}

// accessToken returns the cached token, logging in again when it is close
// to expiry
func (d *DialogGateway) accessToken(ctx context.Context) (string, error) {
	d.mu.RLock()
	token, expiry := d.token, d.tokenExpiry
	d.mu.RUnlock()
	if token != "" && time.Now().Before(expiry.Add(-tokenSkew)) {
		return token, nil
	}

	v, err, _ := d.logins.Do("login", func() (interface{}, error) {
		var resp LoginResponse
		if err := d.post(ctx, "/login", "", LoginRequest{Username: d.cfg.Username, Password: d.cfg.Password}, &resp); err != nil {
			return "", err
		}
		if resp.Status != "success" {
			return "", fmt.Errorf("login failed: %s (error code: %s)", resp.Comment, resp.ErrCode)
		}

		d.mu.Lock()
		d.token = resp.Token
		d.tokenExpiry = time.Now().Add(time.Duration(resp.Expiration) * time.Second)
		d.mu.Unlock()

		d.logger.WithField("expires_in", resp.Expiration).Debug("Dialog access token refreshed")
		return resp.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (d *DialogGateway) post(ctx context.Context, path, token string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("dialog returned status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
