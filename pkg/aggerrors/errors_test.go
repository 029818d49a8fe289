package aggerrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	cn "github.com/atlaspay/aggregator-core/pkg/constant"
)

func TestHTTPStatus_MapsEachTaggedVariant(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not_found", EntityNotFoundError{Message: "x"}, http.StatusNotFound},
		{"conflict", EntityConflictError{Message: "x"}, http.StatusConflict},
		{"validation", ValidationError{Message: "x"}, http.StatusUnprocessableEntity},
		{"field_validation", ValidationFieldsError{Message: "x"}, http.StatusUnprocessableEntity},
		{"transition", StateTransitionError{Message: "x"}, http.StatusConflict},
		{"authz", AuthorizationError{Message: "x"}, http.StatusForbidden},
		{"retryable", RetryableError{Message: "x"}, http.StatusServiceUnavailable},
		{"non_retryable", NonRetryableError{Message: "x"}, http.StatusBadGateway},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestHTTPStatus_UnwrapsWrappedVariant(t *testing.T) {
	wrapped := errors.Join(EntityNotFoundError{Message: "account missing"})
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestValidateBusinessError_MapsSentinelsToTaggedVariants(t *testing.T) {
	err := ValidateBusinessError(cn.ErrAccountNotFound, "Account", "acc_1")

	var notFound EntityNotFoundError

	require := assert.New(t)
	require.True(errors.As(err, &notFound))
	require.Equal(EntityType("Account"), notFound.EntityType)
	require.Equal(http.StatusNotFound, HTTPStatus(err))
}

func TestValidateBusinessError_PassesThroughUnmappedErrors(t *testing.T) {
	original := errors.New("some unrelated failure")
	assert.Same(t, original, ValidateBusinessError(original, "Account"))
}

func TestNewFieldValidations_NormalizesToSnakeCase(t *testing.T) {
	out := NewFieldValidations(map[string]string{"CustomerRef": "required", "orderRef": "required"})

	assert.Equal(t, "required", out["customer_ref"])
	assert.Equal(t, "required", out["order_ref"])
}
