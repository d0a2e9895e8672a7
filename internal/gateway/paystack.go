package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type PaystackClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackClient(baseURL, secretKey string) *PaystackClient {
	return &PaystackClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: requestTimeout * time.Second},
	}
}

type PaystackTransferRequest struct {
	// Amount is in minor units (pesewas) as Paystack expects
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// InitiateTransfer starts a payout to the creator's withdrawal account.
// Completion or failure is reported later on the transfer webhook.
func (c *PaystackClient) InitiateTransfer(ctx context.Context, transfer *PaystackTransferRequest) error {
	body, err := json.Marshal(map[string]any{
		"source":    "balance",
		"amount":    transfer.Amount,
		"currency":  transfer.Currency,
		"recipient": transfer.Recipient,
		"reference": transfer.Reference,
		"reason":    transfer.Reason,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: transfer request returned %d", ErrGateway, res.StatusCode)
	}

	return nil
}

type PaystackVerification struct {
	Status string
	Amount float64
}

// VerifyTransaction asks Paystack for the authoritative status of a
// transaction; used when a webhook looks suspicious or went missing.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*PaystackVerification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: verify request returned %d", ErrGateway, res.StatusCode)
	}

	var verifyRes struct {
		Data struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&verifyRes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return &PaystackVerification{
		Status: verifyRes.Data.Status,
		Amount: float64(verifyRes.Data.Amount) / 100,
	}, nil
}
