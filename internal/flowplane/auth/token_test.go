package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/auth"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

func newTokenService() *auth.Service {
	store := repository.NewMemoryStore[auth.PersonalAccessToken](auth.Summarize)
	return auth.NewService(store)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, auth.ValidateName("ci-runner"))
	assert.Error(t, auth.ValidateName("no"))
	assert.Error(t, auth.ValidateName("has a space"))
}

func TestValidateScopes(t *testing.T) {
	assert.NoError(t, auth.ValidateScopes([]string{"clusters:read", "route-configs:write"}))
	assert.Error(t, auth.ValidateScopes(nil))
	assert.Error(t, auth.ValidateScopes([]string{"INVALID"}))
}

func TestEnsureScopes(t *testing.T) {
	assert.NoError(t, auth.EnsureScopes([]string{"a:read", "a:write"}, "a:read"))
	assert.Error(t, auth.EnsureScopes([]string{"a:read"}, "a:read", "a:write"))
}

func TestServiceCreateAndAuthenticate(t *testing.T) {
	svc := newTokenService()
	ctx := context.Background()

	issued, err := svc.Create(ctx, auth.CreateRequest{Name: "ci-runner", Scopes: []string{"clusters:read"}})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Secret)
	assert.NotEqual(t, issued.Secret, issued.Record.Entity.TokenHash)

	token, err := svc.Authenticate(ctx, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, "ci-runner", token.Name)

	_, err = svc.Authenticate(ctx, "not-a-real-secret")
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestServiceCreateRejectsBadName(t *testing.T) {
	svc := newTokenService()
	_, err := svc.Create(context.Background(), auth.CreateRequest{Name: "x", Scopes: []string{"a:read"}})
	assert.Error(t, err)
}

func TestServiceRevokeStopsAuthentication(t *testing.T) {
	svc := newTokenService()
	ctx := context.Background()

	issued, err := svc.Create(ctx, auth.CreateRequest{Name: "ci-runner", Scopes: []string{"clusters:read"}})
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, "ci-runner")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, issued.Secret)
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)
}

func TestEffective_ExpiredOverridesActive(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	token := auth.PersonalAccessToken{Status: auth.StatusActive, ExpiresAt: &past}
	assert.Equal(t, auth.StatusExpired, token.Effective())
}

func TestEffective_ActiveWithoutExpiry(t *testing.T) {
	token := auth.PersonalAccessToken{Status: auth.StatusActive}
	assert.Equal(t, auth.StatusActive, token.Effective())
}

func TestServiceRotateIssuesNewSecret(t *testing.T) {
	svc := newTokenService()
	ctx := context.Background()

	issued, err := svc.Create(ctx, auth.CreateRequest{Name: "ci-runner", Scopes: []string{"clusters:read"}})
	require.NoError(t, err)

	rotated, err := svc.Rotate(ctx, "ci-runner")
	require.NoError(t, err)
	assert.NotEqual(t, issued.Secret, rotated.Secret)

	_, err = svc.Authenticate(ctx, issued.Secret)
	assert.ErrorIs(t, err, auth.ErrTokenNotFound)

	_, err = svc.Authenticate(ctx, rotated.Secret)
	assert.NoError(t, err)
}

func TestServiceUpdatePartial(t *testing.T) {
	svc := newTokenService()
	ctx := context.Background()

	_, err := svc.Create(ctx, auth.CreateRequest{Name: "ci-runner", Scopes: []string{"clusters:read"}})
	require.NoError(t, err)

	newDesc := "updated description"
	record, err := svc.Update(ctx, "ci-runner", auth.UpdateRequest{Description: &newDesc})
	require.NoError(t, err)
	assert.Equal(t, newDesc, record.Entity.Description)
	assert.Equal(t, []string{"clusters:read"}, record.Entity.Scopes)
}
