package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

const defaultStatusTimeout = 10 * time.Second

// StatusClient reads payment request status from a remote service over
// HTTP. It satisfies the watcher's StatusReader.
type StatusClient struct {
	baseURL string
	http    *http.Client
}

// NewStatusClient targets the service at baseURL. A nil httpClient uses a
// client with a 10s timeout.
func NewStatusClient(baseURL string, httpClient *http.Client) *StatusClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultStatusTimeout}
	}
	return &StatusClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *StatusClient) Get(ctx context.Context, id string) (*types.PaymentRequest, error) {
	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrCodeNetworkError, "status request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewError(types.ErrCodeNetworkError, "failed to read status response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return nil, &types.PaymentError{Code: e.Code, Message: e.Message}
		}
		return nil, types.NewError(types.ErrCodeNetworkError, "status endpoint returned %s", resp.Status)
	}

	var status types.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, types.NewError(types.ErrCodeNetworkError, "invalid status response: %v", err)
	}
	return status.PaymentRequest()
}
