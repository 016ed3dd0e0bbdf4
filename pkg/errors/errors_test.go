package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"max l mismatch", errors.CodeMaxLMismatch, "degree 12 exceeds 10"},
		{"malformed point", errors.CodeMalformedGeoPoint, "latitude out of range"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "n=%d", 1))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("disk full")
	wrapped := errors.Wrap(root, errors.CodeStorageFailure, "persist basis")

	require.NotNil(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, root, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "disk full")
	assert.Contains(t, wrapped.Error(), "CACHE_003")
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeMalformedTable, "bad row")
	outer := errors.Wrap(inner, errors.CodeUnknown, "load table")

	assert.Equal(t, errors.CodeMalformedTable, outer.Code)
}

func TestWithDetail_ReturnsCopy(t *testing.T) {
	t.Parallel()

	base := errors.New(errors.CodeInvalidParam, "bad")
	withDetail := base.WithDetail("key=value")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "key=value", withDetail.Detail)
	assert.Equal(t, "[COMMON_002] bad: key=value", withDetail.Error())

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_ThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	ae := errors.MaxLMismatch(12, 10)
	wrapped := fmt.Errorf("generate: %w", ae)

	assert.True(t, errors.IsCode(wrapped, errors.CodeMaxLMismatch))
	assert.False(t, errors.IsCode(wrapped, errors.CodeEmptyTable))
	assert.Equal(t, errors.CodeMaxLMismatch, errors.GetCode(wrapped))
	assert.Contains(t, ae.Detail, "file_max_l=12")
}

func TestGetCode_Defaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsValidation(errors.MaxLMismatch(3, 2)))
	assert.True(t, errors.IsValidation(errors.NonPositiveDimension("dpi", 0)))
	assert.True(t, errors.IsValidation(errors.MalformedGeoPoint("lon")))
	assert.False(t, errors.IsValidation(errors.New(errors.CodeCancelled, "ctx")))
	assert.False(t, errors.IsValidation(errors.New(errors.CodeFeatureNotFound, "p")))
	assert.True(t, errors.IsNotFound(errors.New(errors.CodeFeatureNotFound, "p")))
}

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnprocessableEntity, errors.HTTPStatusForCode(errors.CodeMaxLMismatch))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.CodeMalformedGeoPoint))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode("NOPE_001"))
	assert.True(t, errors.IsClientError(errors.CodeEmptyTable))
	assert.True(t, errors.IsServerError(errors.CodeStorageFailure))
	assert.Equal(t, "MAP", errors.ModuleForCode(errors.CodeMaxLMismatch))
	assert.Equal(t, "cached basis blob is corrupted", errors.DefaultMessageForCode(errors.CodeCacheCorrupted))
}
