// Package auth implements the personal-access-token lifecycle and
// bearer-token/scope authorization described in original_source's
// src/auth/validation.rs and middleware.rs.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

var (
	nameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	scopeRegex = regexp.MustCompile(`^[a-z][a-z-]*:[a-z]+$`)
)

// ErrTokenNotFound is returned when no stored token's hash matches a
// presented bearer secret.
var ErrTokenNotFound = errors.New("token not found")

// Status enumerates the lifecycle states of a PersonalAccessToken.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// PersonalAccessToken is the canonical, persisted shape of a bearer token.
// The plaintext secret is never stored — only its bcrypt hash.
type PersonalAccessToken struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TokenHash   string     `json:"-"`
	Status      Status     `json:"status"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Scopes      []string   `json:"scopes"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

// Effective reports the token's status accounting for expiry: an active
// token past its expiresAt is treated as expired without a background job
// rewriting the stored status.
func (t *PersonalAccessToken) Effective() Status {
	if t.Status == StatusActive && t.ExpiresAt != nil && t.ExpiresAt.Before(time.Now()) {
		return StatusExpired
	}
	return t.Status
}

// CreateRequest is the payload accepted by POST /tokens.
type CreateRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Scopes      []string   `json:"scopes"`
}

// UpdateRequest is the payload accepted by PATCH /tokens/{id}; every field
// is a partial update applied only when non-nil.
type UpdateRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Scopes      []string   `json:"scopes,omitempty"`
}

// ValidateName enforces ^[a-zA-Z0-9_-]{3,64}$.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("name must match %s", nameRegex.String())
	}
	return nil
}

// ValidateScopes enforces non-empty, each matching ^[a-z][a-z-]*:[a-z]+$.
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return fmt.Errorf("scopes must not be empty")
	}
	for _, s := range scopes {
		if !scopeRegex.MatchString(s) {
			return fmt.Errorf("scope %q must match %s", s, scopeRegex.String())
		}
	}
	return nil
}

// Service implements the PAT lifecycle over a repository.Store.
type Service struct {
	tokens repository.Store[PersonalAccessToken]
}

// NewService binds a Service to the token repository.
func NewService(tokens repository.Store[PersonalAccessToken]) *Service {
	return &Service{tokens: tokens}
}

// Summarize is the repository.Summarizer for PersonalAccessToken; tokens
// have no path-prefix/cluster-target natural-key columns to derive.
func Summarize(PersonalAccessToken) (string, string) { return "", "" }

// IssuedToken is returned once, at creation or rotation time, carrying the
// plaintext secret that will never again be retrievable.
type IssuedToken struct {
	Record *repository.Record[PersonalAccessToken]
	Secret string
}

// Create validates and persists a new token, returning its plaintext
// secret exactly once.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*IssuedToken, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := ValidateScopes(req.Scopes); err != nil {
		return nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	token := PersonalAccessToken{
		Name:        req.Name,
		Description: req.Description,
		TokenHash:   hash,
		Status:      StatusActive,
		ExpiresAt:   req.ExpiresAt,
		Scopes:      req.Scopes,
	}

	record, err := s.tokens.Create(ctx, req.Name, token)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Record: record, Secret: secret}, nil
}

// List returns a page of tokens (most recent version per name).
func (s *Service) List(ctx context.Context, limit, offset int) ([]*repository.Record[PersonalAccessToken], error) {
	return s.tokens.List(ctx, limit, offset)
}

// ListAll returns every token regardless of any pagination concern.
func (s *Service) ListAll(ctx context.Context) ([]*repository.Record[PersonalAccessToken], error) {
	return s.tokens.ListAll(ctx)
}

// Get returns a token by name.
func (s *Service) Get(ctx context.Context, name string) (*repository.Record[PersonalAccessToken], error) {
	return s.tokens.GetByName(ctx, name)
}

// Update applies a partial update to the named token.
func (s *Service) Update(ctx context.Context, name string, req UpdateRequest) (*repository.Record[PersonalAccessToken], error) {
	existing, err := s.tokens.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	token := existing.Entity
	if req.Name != nil {
		if err := ValidateName(*req.Name); err != nil {
			return nil, err
		}
		token.Name = *req.Name
	}
	if req.Description != nil {
		token.Description = *req.Description
	}
	if req.Status != nil {
		token.Status = *req.Status
	}
	if req.ExpiresAt != nil {
		token.ExpiresAt = req.ExpiresAt
	}
	if req.Scopes != nil {
		if err := ValidateScopes(req.Scopes); err != nil {
			return nil, err
		}
		token.Scopes = req.Scopes
	}

	return s.tokens.Update(ctx, existing.ID, token)
}

// Revoke sets a token's status to revoked, never hard-deleting the row.
func (s *Service) Revoke(ctx context.Context, name string) (*repository.Record[PersonalAccessToken], error) {
	existing, err := s.tokens.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	token := existing.Entity
	token.Status = StatusRevoked
	return s.tokens.Update(ctx, existing.ID, token)
}

// Rotate issues a new secret for the same token record, returning it
// exactly once.
func (s *Service) Rotate(ctx context.Context, name string) (*IssuedToken, error) {
	existing, err := s.tokens.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	token := existing.Entity
	token.TokenHash = hash

	record, err := s.tokens.Update(ctx, existing.ID, token)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Record: record, Secret: secret}, nil
}

// Authenticate verifies a presented bearer secret against every stored
// token's hash and returns the matching active token. There is no lookup
// index from secret to record since only the hash is stored, so this scans
// the full token list on every call, whichever store backs the service.
// Revoked and expired tokens are skipped.
func (s *Service) Authenticate(ctx context.Context, secret string) (*PersonalAccessToken, error) {
	records, err := s.tokens.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrConnectionFailed, err)
	}

	for _, record := range records {
		token := record.Entity
		if token.Effective() != StatusActive {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(secret)) == nil {
			return &token, nil
		}
	}
	return nil, ErrTokenNotFound
}

// EnsureScopes implements middleware.rs's ensure_scopes: every listed
// scope must be present among the token's granted scopes.
func EnsureScopes(granted []string, required ...string) error {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		grantedSet[g] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := grantedSet[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required scopes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "fpat_" + hex.EncodeToString(buf), nil
}

// HashSecret bcrypt-hashes a plaintext token secret for storage.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
