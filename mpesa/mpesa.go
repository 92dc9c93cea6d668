// Package mpesa is the thin adapter to the Daraja STK push API. The core
// only depends on the narrow initiate/callback contract; token exchange
// and request signing live here.
package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"bytes"
)

// Config carries the gateway credentials, loaded from the environment.
type Config struct {
	Shortcode      string
	Passkey        string
	CallbackURL    string
	ConsumerKey    string
	ConsumerSecret string
	BaseURL        string
}

// LoadConfig reads MPESA_* environment variables.
func LoadConfig() Config {
	base := os.Getenv("MPESA_BASE_URL")
	if base == "" {
		base = "https://sandbox.safaricom.co.ke"
	}
	return Config{
		Shortcode:      os.Getenv("MPESA_SHORTCODE"),
		Passkey:        os.Getenv("MPESA_PASSKEY"),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		BaseURL:        strings.TrimRight(base, "/"),
	}
}

// Client talks to the gateway over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// STKPushResponse is the synchronous half of the payment contract. The
// CheckoutRequestID correlates the push with its eventual callback.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken fetches a fresh OAuth token using the consumer credentials.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa token request: status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("mpesa token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("mpesa token response missing access_token")
	}
	return tok.AccessToken, nil
}

// STKPush issues a Lipa Na M-Pesa prompt to the given phone. Amount is
// whole units; the gateway rejects decimals.
func (c *Client) STKPush(ctx context.Context, phone string, amount int, reference, description string) (STKPushResponse, error) {
	var out STKPushResponse

	token, err := c.AccessToken(ctx)
	if err != nil {
		return out, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp),
	)

	payload := map[string]any{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}

	url := c.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("mpesa stkpush request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("mpesa stkpush decode: %w", err)
	}
	if out.ErrorMessage != "" {
		return out, fmt.Errorf("mpesa stkpush: %s", out.ErrorMessage)
	}
	if out.CheckoutRequestID == "" {
		return out, fmt.Errorf("mpesa stkpush: response missing CheckoutRequestID")
	}
	return out, nil
}
