// internal/pkg/apperrors/errors_test.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeAvailability: http.StatusConflict,
		CodeNotFound:     http.StatusNotFound,
		CodeState:        http.StatusUnprocessableEntity,
		CodePayment:      http.StatusBadGateway,
		CodeConflict:     http.StatusConflict,
	}
	for code, want := range cases {
		assert.Equal(t, want, (&AppError{Code: code}).HTTPStatus(), string(code))
	}
}

func TestAsThroughWrapping(t *testing.T) {
	orig := NotFound("order", 42)
	wrapped := fmt.Errorf("loading order: %w", orig)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeState))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("gateway timeout")
	err := Payment("intent creation failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestAvailabilityCarriesIssues(t *testing.T) {
	err := Availability("some items are out of stock", LineIssue{
		VariantID: 7, Requested: 3, Available: 1, Reason: "insufficient stock",
	})
	require.Len(t, err.Issues, 1)
	assert.Equal(t, uint(7), err.Issues[0].VariantID)
}

func TestHasCodeOnPlainError(t *testing.T) {
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}
