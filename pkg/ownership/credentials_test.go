package ownership

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallationTokenProvider_MintAndCache(t *testing.T) {
	clock := newFakeClock()
	var mints atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mints.Add(1)
		assert.Equal(t, "Bearer app-secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"token":"tok-%d","expires_at":%q}`,
			mints.Load(), clock.Now().Add(time.Hour).Format(time.RFC3339))
	}))
	defer srv.Close()

	p := NewInstallationTokenProvider(srv.URL, "app-1", "app-secret", srv.Client(), clock)

	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	// Cached until close to expiry.
	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int32(1), mints.Load())

	// Past expiry it mints again.
	clock.Advance(2 * time.Hour)
	token, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)
}

func TestInstallationTokenProvider_Unconfigured(t *testing.T) {
	p := NewInstallationTokenProvider("", "", "", nil, nil)
	token, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestInstallationTokenProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	p := NewInstallationTokenProvider(srv.URL, "app-1", "secret", srv.Client(), newFakeClock())
	_, err := p.Token(context.Background())
	assert.ErrorContains(t, err, "status 403")
}

func TestInstallationTokenProvider_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":""}`)
	}))
	defer srv.Close()

	p := NewInstallationTokenProvider(srv.URL, "app-1", "secret", srv.Client(), newFakeClock())
	_, err := p.Token(context.Background())
	assert.ErrorContains(t, err, "empty token")
}

func TestHTTPOrgClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/orgs/iflastandards/members":
			assert.Equal(t, AdminRole, r.URL.Query().Get("role"))
			fmt.Fprint(w, `[{"login":"maria"},{"login":"jonphipps"}]`)
		case "/orgs/iflastandards/memberships/maria":
			fmt.Fprint(w, `{"role":"admin","state":"active"}`)
		case "/orgs/iflastandards/memberships/ghost":
			http.NotFound(w, r)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewHTTPOrgClient(srv.URL, "iflastandards", srv.Client())

	owners, err := client.ListOwners(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"maria", "jonphipps"}, owners)

	role, err := client.MembershipRole(context.Background(), "tok", "maria")
	require.NoError(t, err)
	assert.Equal(t, AdminRole, role)

	_, err = client.MembershipRole(context.Background(), "tok", "ghost")
	assert.Error(t, err)
}
