package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dumelo/kolo/internal/cache"
)

const eganowTokenCacheKey = "eganow:access_token"

type EganowClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	cache     *cache.Cache
	client    *http.Client
}

func NewEganowClient(baseURL, apiKey, apiSecret string, cache *cache.Cache) *EganowClient {
	return &EganowClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		cache:     cache,
		client:    &http.Client{Timeout: requestTimeout * time.Second},
	}
}

type EganowCollectionRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	PhoneNumber string  `json:"customer_msisdn"`
	Reference   string  `json:"merchant_reference"`
	Narration   string  `json:"narration"`
}

type eganowTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a bearer token for the Eganow API, fetching a fresh
// one only when the cached token has expired. The cache TTL is shaved by a
// minute so we never present a token that dies mid-request.
func (c *EganowClient) accessToken(ctx context.Context) (string, error) {
	token, err := c.cache.Get(eganowTokenCacheKey)
	if err == nil && token != "" {
		return token, nil
	}

	body, err := json.Marshal(map[string]string{
		"api_key":    c.apiKey,
		"api_secret": c.apiSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrGateway, res.StatusCode)
	}

	var tokenRes eganowTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tokenRes); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}

	ttl := time.Duration(tokenRes.ExpiresIn)*time.Second - time.Minute
	if ttl > 0 {
		if err := c.cache.Set(eganowTokenCacheKey, tokenRes.AccessToken, ttl); err != nil {
			// a cache miss next time just means an extra token request
			log.Printf("Failed to cache eganow token: %v", err)
		}
	}

	return tokenRes.AccessToken, nil
}

// Collect asks Eganow to charge the contributor's mobile-money wallet. The
// outcome arrives later on the webhook; a non-2xx here only means the
// charge was never initiated.
func (c *EganowClient) Collect(ctx context.Context, collection *EganowCollectionRequest) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(collection)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/collections/momo", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: collection request returned %d", ErrGateway, res.StatusCode)
	}

	return nil
}
