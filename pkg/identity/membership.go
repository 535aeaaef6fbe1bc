package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/iflastandards/authgate/pkg/principal"
)

// Memberships is the enrichment payload fetched from the identity
// provider: the review-group, team and translation memberships of one
// subject, each with a role field.
type Memberships struct {
	ReviewGroups []principal.GroupMembership `json:"review_groups,omitempty"`
	Teams        []principal.GroupMembership `json:"teams,omitempty"`
	Translations []principal.GroupMembership `json:"translations,omitempty"`
}

// MembershipClient fetches enrichment memberships for a subject.
type MembershipClient interface {
	Memberships(ctx context.Context, username string) (*Memberships, error)
}

// HTTPMembershipClient queries the provider's membership endpoint with
// a service credential obtained via the OAuth2 client-credentials
// grant. Responses are held briefly in an expirable LRU so bursts of
// requests for the same user do not hammer the provider; the cache is
// advisory and short-lived, the principal itself is still rebuilt per
// request.
type HTTPMembershipClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *lru.LRU[string, *Memberships]
}

// MembershipConfig configures the HTTP membership client.
type MembershipConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string

	// CacheSize and CacheTTL bound the response cache. Zero values
	// fall back to 256 entries / 30 seconds.
	CacheSize int
	CacheTTL  time.Duration
}

// NewHTTPMembershipClient builds the client. The OAuth2 token source
// refreshes the service credential transparently.
func NewHTTPMembershipClient(ctx context.Context, cfg MembershipConfig) (*HTTPMembershipClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("membership base URL is required")
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	if cfg.TokenURL != "" {
		creds := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = creds.Client(ctx)
		httpClient.Timeout = 10 * time.Second
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &HTTPMembershipClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		cache:      lru.NewLRU[string, *Memberships](size, nil, ttl),
	}, nil
}

// Memberships fetches the membership lists for a username.
func (c *HTTPMembershipClient) Memberships(ctx context.Context, username string) (*Memberships, error) {
	if cached, ok := c.cache.Get(username); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/users/%s/memberships", c.baseURL, url.PathEscape(username))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("membership request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown users simply have no memberships.
		empty := &Memberships{}
		c.cache.Add(username, empty)
		return empty, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("membership endpoint returned status %d", resp.StatusCode)
	}

	var memberships Memberships
	if err := json.NewDecoder(resp.Body).Decode(&memberships); err != nil {
		return nil, fmt.Errorf("failed to decode membership response: %w", err)
	}

	c.cache.Add(username, &memberships)
	return &memberships, nil
}

// Invalidate drops any cached memberships for a username. Used by the
// webhook handler when the provider reports a membership change.
func (c *HTTPMembershipClient) Invalidate(username string) {
	c.cache.Remove(username)
}
