package ownership

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AdminRole is the membership role value the identity provider returns
// for organization owners. Anything else is not an owner.
const AdminRole = "admin"

// OrgClient queries the identity provider's organization API.
type OrgClient interface {
	// ListOwners returns the usernames of every organization owner.
	ListOwners(ctx context.Context, token string) ([]string, error)

	// MembershipRole returns the membership role for a username, or an
	// error when the user is not a member.
	MembershipRole(ctx context.Context, token, username string) (string, error)
}

// HTTPOrgClient implements OrgClient against a REST organization API.
type HTTPOrgClient struct {
	baseURL    string
	org        string
	httpClient *http.Client
}

// NewHTTPOrgClient creates a client for the given API base URL and
// organization slug.
func NewHTTPOrgClient(baseURL, org string, httpClient *http.Client) *HTTPOrgClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOrgClient{baseURL: baseURL, org: org, httpClient: httpClient}
}

type memberRecord struct {
	Login string `json:"login"`
	Role  string `json:"role,omitempty"`
}

// ListOwners fetches the organization members holding the admin role.
func (c *HTTPOrgClient) ListOwners(ctx context.Context, token string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/orgs/%s/members?role=%s", c.baseURL, url.PathEscape(c.org), AdminRole)

	var members []memberRecord
	if err := c.getJSON(ctx, endpoint, token, &members); err != nil {
		return nil, fmt.Errorf("failed to list organization owners: %w", err)
	}

	owners := make([]string, 0, len(members))
	for _, m := range members {
		owners = append(owners, m.Login)
	}
	return owners, nil
}

// MembershipRole fetches the membership record for one username.
func (c *HTTPOrgClient) MembershipRole(ctx context.Context, token, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/orgs/%s/memberships/%s",
		c.baseURL, url.PathEscape(c.org), url.PathEscape(username))

	var membership struct {
		Role  string `json:"role"`
		State string `json:"state"`
	}
	if err := c.getJSON(ctx, endpoint, token, &membership); err != nil {
		return "", fmt.Errorf("failed to fetch membership for %s: %w", username, err)
	}

	return membership.Role, nil
}

func (c *HTTPOrgClient) getJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
