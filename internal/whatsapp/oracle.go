// Package whatsapp wraps the external service that checks whether a phone
// number is a real, reachable WhatsApp account.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Oracle answers "is this number a reachable WhatsApp account". Enrollment
// calls it before opening its transaction so row locks are never held across
// an uncontrolled-duration network call.
type Oracle interface {
	IsRegistered(ctx context.Context, number string) (bool, error)
}

type HTTPOracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPOracle(baseURL, apiKey string) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type checkResponse struct {
	Exists bool `json:"exists"`
}

func (o *HTTPOracle) IsRegistered(ctx context.Context, number string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/numbers/%s", o.baseURL, url.PathEscape(number))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("whatsapp verification returned status %d", resp.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Exists, nil
}
