package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Gateway talks to the payment provider's checkout API. It authenticates
// with a short-lived merchant token; concurrent requests that need a fresh
// token share a single fetch through the singleflight group instead of each
// hitting the token endpoint.
type Gateway struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	stubMode   bool

	tokenGroup singleflight.Group
	mu         sync.Mutex
	token      string
	tokenExp   time.Time
}

// CheckoutSession is an opened payment session. Token keys the PENDING
// subscription row; the callback resolves it.
type CheckoutSession struct {
	Token          string `json:"token"`
	PaymentPageURL string `json:"payment_page_url"`
}

// NewGateway creates a gateway client. In stub mode no network calls are
// made; checkouts succeed immediately with a generated token.
func NewGateway(baseURL, apiKey, apiSecret string, stubMode bool) *Gateway {
	return &Gateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// CreateCheckout opens a checkout session for the given amount. A stale
// merchant token (401 from the provider) is refreshed once and the call
// retried.
func (g *Gateway) CreateCheckout(ctx context.Context, userID uint, planType string, price int, callbackURL string) (*CheckoutSession, error) {
	if g.stubMode {
		tok := uuid.New().String()
		return &CheckoutSession{
			Token:          tok,
			PaymentPageURL: "https://sandbox.gateway.local/pay/" + tok,
		}, nil
	}

	session, status, err := g.postCheckout(ctx, userID, planType, price, callbackURL)
	if status == http.StatusUnauthorized {
		g.invalidateToken()
		session, _, err = g.postCheckout(ctx, userID, planType, price, callbackURL)
	}
	return session, err
}

func (g *Gateway) postCheckout(ctx context.Context, userID uint, planType string, price int, callbackURL string) (*CheckoutSession, int, error) {
	merchantToken, err := g.merchantToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"reference_user": userID,
		"plan":           planType,
		"amount":         price,
		"callback_url":   callbackURL,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+merchantToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute checkout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode checkout response: %w", err)
	}
	return &session, resp.StatusCode, nil
}

// merchantToken returns a cached token or fetches one. All waiters of a
// concurrent refresh get the same result; a failed fetch rejects them all.
func (g *Gateway) merchantToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.token != "" && time.Now().Before(g.tokenExp) {
		tok := g.token
		g.mu.Unlock()
		return tok, nil
	}
	g.mu.Unlock()

	result, err, _ := g.tokenGroup.Do("merchant-token", func() (interface{}, error) {
		return g.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (g *Gateway) fetchToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"api_key":    g.apiKey,
		"api_secret": g.apiSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch merchant token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	g.mu.Lock()
	g.token = payload.Token
	// Renew slightly early so in-flight requests don't race the expiry.
	g.tokenExp = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - 30*time.Second)
	g.mu.Unlock()

	return payload.Token, nil
}

func (g *Gateway) invalidateToken() {
	g.mu.Lock()
	g.token = ""
	g.tokenExp = time.Time{}
	g.mu.Unlock()
}
