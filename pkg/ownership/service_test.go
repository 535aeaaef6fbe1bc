package ownership

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeOrgClient struct {
	owners    []string
	roles     map[string]string
	listCalls int
	roleCalls int
	listErr   error
	roleErr   error
}

func (f *fakeOrgClient) ListOwners(ctx context.Context, token string) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.owners, nil
}

func (f *fakeOrgClient) MembershipRole(ctx context.Context, token, username string) (string, error) {
	f.roleCalls++
	if f.roleErr != nil {
		return "", f.roleErr
	}
	role, ok := f.roles[username]
	if !ok {
		return "", fmt.Errorf("not found")
	}
	return role, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestService(client *fakeOrgClient, chain CredentialChain, emergency []string) *Service {
	return NewService(Config{
		Org:             "iflastandards",
		Chain:           chain,
		Client:          client,
		CacheTTL:        5 * time.Minute,
		Clock:           newFakeClock(),
		EmergencyOwners: emergency,
		Logger:          quietLogger(),
	})
}

func TestService_IsOwner_FromCache(t *testing.T) {
	client := &fakeOrgClient{owners: []string{"maria"}}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, nil)

	assert.True(t, svc.IsOwner(context.Background(), "maria"))
	// Cache answered; no per-user membership call was needed.
	assert.Equal(t, 0, client.roleCalls)
}

func TestService_IsOwner_AuthoritativeLookupInvalidatesCache(t *testing.T) {
	client := &fakeOrgClient{
		owners: []string{"maria"},
		roles:  map[string]string{"newadmin": AdminRole},
	}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, nil)

	assert.True(t, svc.IsOwner(context.Background(), "newadmin"))
	assert.Equal(t, 1, client.roleCalls)

	// The positive authoritative hit invalidated the cache: the next
	// cache-backed check refreshes rather than reusing the stale set.
	listCallsBefore := client.listCalls
	client.owners = []string{"maria", "newadmin"}
	assert.True(t, svc.IsOwner(context.Background(), "newadmin"))
	assert.Greater(t, client.listCalls, listCallsBefore)
}

func TestService_IsOwner_NonAdminRole(t *testing.T) {
	client := &fakeOrgClient{roles: map[string]string{"member1": "member"}}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, nil)

	assert.False(t, svc.IsOwner(context.Background(), "member1"))
}

func TestService_IsOwner_MissingMembership(t *testing.T) {
	client := &fakeOrgClient{}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, nil)

	assert.False(t, svc.IsOwner(context.Background(), "ghost"))
}

func TestService_IsOwner_NoCredential(t *testing.T) {
	client := &fakeOrgClient{owners: []string{"maria"}}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("")}, nil)

	// Without a credential the provider API is never consulted.
	assert.False(t, svc.IsOwner(context.Background(), "maria"))
	assert.Equal(t, 0, client.listCalls)
	assert.Equal(t, 0, client.roleCalls)
}

func TestService_EmergencyList_OnlyWithoutCredentials(t *testing.T) {
	client := &fakeOrgClient{}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("")}, []string{"breakglass"})

	assert.True(t, svc.IsOwner(context.Background(), "breakglass"))
	assert.True(t, svc.IsOwner(context.Background(), "BreakGlass"))
	assert.False(t, svc.IsOwner(context.Background(), "other"))

	// With a credential configured the emergency list is ignored.
	withCred := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, []string{"breakglass"})
	assert.False(t, withCred.IsOwner(context.Background(), "breakglass"))
}

func TestService_IsOwner_EmptyUsername(t *testing.T) {
	svc := newTestService(&fakeOrgClient{}, CredentialChain{NewStaticTokenProvider("pat")}, nil)
	assert.False(t, svc.IsOwner(context.Background(), ""))
}

func TestService_CacheRefreshFailureFallsThrough(t *testing.T) {
	client := &fakeOrgClient{
		listErr: fmt.Errorf("api down"),
		roles:   map[string]string{"maria": AdminRole},
	}
	svc := newTestService(client, CredentialChain{NewStaticTokenProvider("pat")}, nil)

	// Cache refresh fails but the authoritative path still answers.
	assert.True(t, svc.IsOwner(context.Background(), "maria"))
}

func TestCredentialChain_Order(t *testing.T) {
	chain := CredentialChain{
		NewStaticTokenProvider(""),
		NewStaticTokenProvider("second"),
	}
	token, provider, ok := chain.Token(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "second", token)
	assert.Equal(t, "static", provider)

	empty := CredentialChain{NewStaticTokenProvider("")}
	_, _, ok = empty.Token(context.Background())
	assert.False(t, ok)
}
