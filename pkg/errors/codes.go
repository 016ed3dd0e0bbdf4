package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the underscore names the module that owns the code.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeBadRequest    ErrorCode = "COMMON_002"
	ErrCodeNotFound      ErrorCode = "COMMON_005"
	ErrCodeConflict      ErrorCode = "COMMON_006"
	ErrCodeTimeout       ErrorCode = "COMMON_009"
	ErrCodeValidation    ErrorCode = "COMMON_010"
	ErrCodeSerialization ErrorCode = "COMMON_011"
	ErrCodeCancelled     ErrorCode = "COMMON_017"
)

// Map Module Error Codes
const (
	ErrCodeMaxLMismatch         ErrorCode = "MAP_001"
	ErrCodeNonPositiveDimension ErrorCode = "MAP_002"
	ErrCodeMalformedGeoPoint    ErrorCode = "MAP_003"
	ErrCodeMalformedTable       ErrorCode = "MAP_004"
	ErrCodeEmptyTable           ErrorCode = "MAP_005"
)

// Cache Module Error Codes
const (
	ErrCodeCacheCorrupted ErrorCode = "CACHE_001"
	ErrCodeBlobNotFound   ErrorCode = "CACHE_002"
	ErrCodeStorageFailure ErrorCode = "CACHE_003"
)

// Feature Module Error Codes
const (
	ErrCodeFeatureNotFound  ErrorCode = "FEATURE_001"
	ErrCodeFeatureDuplicate ErrorCode = "FEATURE_002"
	ErrCodeFeatureInvalid   ErrorCode = "FEATURE_003"
)

// Config Module Error Codes
const (
	ErrCodeConfigInvalid ErrorCode = "CONFIG_001"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_002"
)

// Short aliases used at call sites.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")

	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeValidation    = ErrCodeValidation
	CodeSerialization = ErrCodeSerialization
	CodeCancelled     = ErrCodeCancelled

	CodeMaxLMismatch         = ErrCodeMaxLMismatch
	CodeNonPositiveDimension = ErrCodeNonPositiveDimension
	CodeMalformedGeoPoint    = ErrCodeMalformedGeoPoint
	CodeMalformedTable       = ErrCodeMalformedTable
	CodeEmptyTable           = ErrCodeEmptyTable

	CodeCacheCorrupted = ErrCodeCacheCorrupted
	CodeBlobNotFound   = ErrCodeBlobNotFound
	CodeStorageFailure = ErrCodeStorageFailure

	CodeFeatureNotFound  = ErrCodeFeatureNotFound
	CodeFeatureDuplicate = ErrCodeFeatureDuplicate
	CodeFeatureInvalid   = ErrCodeFeatureInvalid

	CodeConfigInvalid = ErrCodeConfigInvalid
	CodeConfigLoad    = ErrCodeConfigLoad
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeSerialization: http.StatusInternalServerError,
	ErrCodeCancelled:     499,

	ErrCodeMaxLMismatch:         http.StatusUnprocessableEntity,
	ErrCodeNonPositiveDimension: http.StatusBadRequest,
	ErrCodeMalformedGeoPoint:    http.StatusBadRequest,
	ErrCodeMalformedTable:       http.StatusBadRequest,
	ErrCodeEmptyTable:           http.StatusBadRequest,

	ErrCodeCacheCorrupted: http.StatusInternalServerError,
	ErrCodeBlobNotFound:   http.StatusNotFound,
	ErrCodeStorageFailure: http.StatusServiceUnavailable,

	ErrCodeFeatureNotFound:  http.StatusNotFound,
	ErrCodeFeatureDuplicate: http.StatusConflict,
	ErrCodeFeatureInvalid:   http.StatusBadRequest,

	ErrCodeConfigInvalid: http.StatusBadRequest,
	ErrCodeConfigLoad:    http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:      "internal server error",
	ErrCodeBadRequest:    "bad request",
	ErrCodeNotFound:      "resource not found",
	ErrCodeConflict:      "resource conflict",
	ErrCodeTimeout:       "request timeout",
	ErrCodeValidation:    "validation failed",
	ErrCodeSerialization: "serialization failed",
	ErrCodeCancelled:     "operation cancelled",

	ErrCodeMaxLMismatch:         "coefficient table degree exceeds cached degree",
	ErrCodeNonPositiveDimension: "dimension must be positive",
	ErrCodeMalformedGeoPoint:    "malformed geographic point",
	ErrCodeMalformedTable:       "malformed coefficient table",
	ErrCodeEmptyTable:           "coefficient table has no rows",

	ErrCodeCacheCorrupted: "cached basis blob is corrupted",
	ErrCodeBlobNotFound:   "cached basis blob not found",
	ErrCodeStorageFailure: "basis storage failure",

	ErrCodeFeatureNotFound:  "feature not found",
	ErrCodeFeatureDuplicate: "feature already exists",
	ErrCodeFeatureInvalid:   "invalid feature",

	ErrCodeConfigInvalid: "invalid configuration",
	ErrCodeConfigLoad:    "failed to load configuration",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
