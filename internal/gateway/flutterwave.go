package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultFlutterwaveBaseURL = "https://api.flutterwave.com"

// Flutterwave charges mobile money through the Flutterwave API.
type Flutterwave struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewFlutterwave creates a Flutterwave gateway client. An empty baseURL
// selects the production API.
func NewFlutterwave(secret, baseURL string) *Flutterwave {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultFlutterwaveBaseURL
	}
	return &Flutterwave{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// chargeRequest mirrors the provider's mobile money charge payload.
type chargeRequest struct {
	TxRef          string            `json:"tx_ref"`
	Amount         string            `json:"amount"`
	Currency       string            `json:"currency"`
	PaymentOptions string            `json:"payment_options"`
	Customer       chargeCustomer    `json:"customer"`
	Meta           map[string]string `json:"meta"`
}

type chargeCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Initiate starts a mobile money charge for the reference.
func (f *Flutterwave) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	payload := chargeRequest{
		TxRef:          req.Reference,
		Amount:         strconv.FormatInt(req.Amount, 10),
		Currency:       req.Currency,
		PaymentOptions: "mobilemoneyuganda",
		Customer: chargeCustomer{
			Email: "anonymous@ankwata.local",
			Name:  "ANKWATA Player",
		},
		Meta: map[string]string{"platform": "ankwata_web"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Initiation{}, fmt.Errorf("marshal charge request: %w", err)
	}

	endpoint := f.baseURL + "/v3/charges?type=mobile_money_uganda"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Initiation{}, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+f.secret)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return Initiation{}, fmt.Errorf("call charge endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Initiation{}, fmt.Errorf("read charge response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Initiation{}, fmt.Errorf("charge returned status %d: %w", resp.StatusCode, ErrRejected)
	}

	var parsed struct {
		Meta json.RawMessage `json:"meta"`
	}
	// Instructions are best-effort; the raw body is what the session keeps.
	_ = json.Unmarshal(respBody, &parsed)

	initiation := Initiation{Meta: json.RawMessage(respBody)}
	if len(parsed.Meta) > 0 && string(parsed.Meta) != "null" {
		initiation.Instructions = string(parsed.Meta)
	}
	return initiation, nil
}

// CheckStatus verifies the charge by reference and returns the provider's
// transaction status.
func (f *Flutterwave) CheckStatus(ctx context.Context, reference string) (string, error) {
	endpoint := f.baseURL + "/v3/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build verify request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.secret)

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call verify endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read verify response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		// The provider has not seen the charge yet.
		return StatusPending, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("verify returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode verify response: %w", err)
	}
	status := strings.TrimSpace(parsed.Data.Status)
	if status == "" {
		return StatusPending, nil
	}
	return status, nil
}
