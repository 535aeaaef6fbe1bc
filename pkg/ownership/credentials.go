package ownership

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// CredentialProvider yields a bearer credential for talking to the
// identity provider's organization API. Providers are tried in order;
// an empty token means "not configured, try the next one".
type CredentialProvider interface {
	Name() string
	Token(ctx context.Context) (string, error)
}

// CredentialChain tries each provider in turn and returns the first
// usable credential.
type CredentialChain []CredentialProvider

// Token returns the first non-empty credential in the chain, the name
// of the provider that produced it, and whether any provider succeeded.
func (c CredentialChain) Token(ctx context.Context) (token string, provider string, ok bool) {
	for _, p := range c {
		t, err := p.Token(ctx)
		if err != nil || t == "" {
			continue
		}
		return t, p.Name(), true
	}
	return "", "", false
}

// StaticTokenProvider wraps a long-lived personal access token from
// configuration. It is the fallback behind the installation provider.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for a configured token.
// An empty token is allowed and simply never matches.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Name() string { return "static" }

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return p.token, nil
}

// InstallationTokenProvider mints short-lived installation tokens
// scoped to the organization, caching each until shortly before
// expiry.
type InstallationTokenProvider struct {
	tokenURL   string
	appID      string
	appSecret  string
	httpClient *http.Client
	clock      Clock

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewInstallationTokenProvider creates a provider minting tokens from
// tokenURL using the app credentials. Any empty parameter leaves the
// provider unconfigured; it then always yields an empty token.
func NewInstallationTokenProvider(tokenURL, appID, appSecret string, httpClient *http.Client, clock Clock) *InstallationTokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &InstallationTokenProvider{
		tokenURL:   tokenURL,
		appID:      appID,
		appSecret:  appSecret,
		httpClient: httpClient,
		clock:      clock,
	}
}

func (p *InstallationTokenProvider) Name() string { return "installation" }

func (p *InstallationTokenProvider) configured() bool {
	return p.tokenURL != "" && p.appID != "" && p.appSecret != ""
}

func (p *InstallationTokenProvider) Token(ctx context.Context) (string, error) {
	if !p.configured() {
		return "", nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Reuse the cached token with a minute of slack before expiry.
	if p.token != "" && p.clock.Now().Add(time.Minute).Before(p.expires) {
		return p.token, nil
	}

	token, expires, err := p.mint(ctx)
	if err != nil {
		return "", err
	}

	p.token = token
	p.expires = expires
	return token, nil
}

func (p *InstallationTokenProvider) mint(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		"app_id": p.appID,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.appSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", time.Time{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	if decoded.Token == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty token")
	}
	if decoded.ExpiresAt.IsZero() {
		decoded.ExpiresAt = p.clock.Now().Add(time.Hour)
	}

	return decoded.Token, decoded.ExpiresAt, nil
}
