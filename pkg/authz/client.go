package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iflastandards/authgate/pkg/principal"
)

// DecisionClient consults the external policy service. Given a
// principal, a resource and a set of actions it answers allow/deny per
// action. The service is a black box: this core owns no policy logic.
type DecisionClient interface {
	Decide(ctx context.Context, p *principal.Principal, resource Resource, actions []string) (map[string]bool, error)
}

// HTTPDecisionClient talks to the decision service over HTTP. One POST
// per check; no internal retries. Callers needing retry semantics wrap
// the engine themselves.
type HTTPDecisionClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPDecisionClient creates a client for the given endpoint. An
// empty endpoint is a configuration error and is rejected here so it
// surfaces at startup rather than per-request.
func NewHTTPDecisionClient(endpoint string, httpClient *http.Client) (*HTTPDecisionClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("decision service endpoint is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPDecisionClient{endpoint: endpoint, httpClient: httpClient}, nil
}

// decisionRequest is the wire shape sent to the decision service.
type decisionRequest struct {
	Principal *principal.Principal `json:"principal"`
	Resource  Resource             `json:"resource"`
	Actions   []string             `json:"actions"`
}

// decisionResponse is the wire shape returned by the decision service.
type decisionResponse struct {
	Results map[string]bool `json:"results"`
}

// Decide performs the remote check. Any transport or decode failure is
// returned as an error; the engine converts it into a denial.
func (c *HTTPDecisionClient) Decide(ctx context.Context, p *principal.Principal, resource Resource, actions []string) (map[string]bool, error) {
	body, err := json.Marshal(decisionRequest{Principal: p, Resource: resource, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("failed to encode decision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("decision service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("decision service returned status %d", resp.StatusCode)
	}

	var decoded decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode decision response: %w", err)
	}
	if decoded.Results == nil {
		return nil, fmt.Errorf("decision response missing results")
	}

	return decoded.Results, nil
}
