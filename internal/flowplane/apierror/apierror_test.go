package apierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowplane/flowplane/internal/flowplane/model"
	"github.com/flowplane/flowplane/internal/flowplane/repository"
)

func TestMap(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, 400},
		{KindBadRequest, 400},
		{KindUnauthorized, 401},
		{KindForbidden, 403},
		{KindNotFound, 404},
		{KindConflict, 409},
		{KindServiceUnavailable, 503},
		{KindInternal, 500},
		{Kind("unknown"), 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "boom")
			assert.Equal(t, tt.want, err.Map())
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindInternal, "wrapped", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "wrapped")
}

func TestFromValidation(t *testing.T) {
	errs := model.ValidationErrors{
		{Field: "name", Kind: "Validation", Msg: "must not be empty"},
	}
	err := FromValidation(errs)
	require.NotNil(t, err)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, 400, err.Map())
}

func TestFromRepository(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"not found", repository.ErrNotFound, KindNotFound},
		{"already exists", repository.ErrAlreadyExists, KindConflict},
		{"connection failed", repository.ErrConnectionFailed, KindServiceUnavailable},
		{"wrapped not found", errors.New("wrap: " + repository.ErrNotFound.Error()), KindServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromRepository(tt.err)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}

	wrapped := errors.Join(repository.ErrNotFound)
	assert.Equal(t, KindNotFound, FromRepository(wrapped).Kind)
}

func TestAs(t *testing.T) {
	apiErr := New(KindConflict, "already taken")
	var wrapped error = apiErr
	got := As(wrapped)
	assert.Same(t, apiErr, got)

	got = As(errors.New("plain"))
	assert.Equal(t, KindInternal, got.Kind)
}
