package apperrors

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/ecoswap-api/internal/storage"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeAuthorization, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeInvalidTransition, http.StatusConflict},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	err := pkgerrors.Wrap(Conflict("занято"), "accept")
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.True(t, Is(err, CodeConflict))
	assert.False(t, Is(err, CodeNotFound))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.NotContains(t, appErr.Message, "connection reset")
	assert.ErrorIs(t, err, cause)
}

func TestFromStorage(t *testing.T) {
	assert.NoError(t, FromStorage(nil, "x"))

	err := FromStorage(pkgerrors.Wrap(storage.ErrNotFound, "item 1"), "вещь не найдена")
	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.Equal(t, "вещь не найдена", appErr.Message)

	assert.Equal(t, CodeConflict, CodeOf(FromStorage(storage.ErrDuplicate, "x")))
	assert.Equal(t, CodeConflict, CodeOf(FromStorage(storage.ErrConflict, "x")))
	assert.Equal(t, CodeInternal, CodeOf(FromStorage(errors.New("io"), "x")))

	original := Validation("плохо")
	assert.Same(t, original, FromStorage(original, "x"))
}
