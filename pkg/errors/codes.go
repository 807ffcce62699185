package errors

import "net/http"

// ErrorCode is a string identifier for a specific failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_003"
	ErrCodeTimeout         ErrorCode = "COMMON_004"
	ErrCodeValidation      ErrorCode = "COMMON_005"
	ErrCodeSerialization   ErrorCode = "COMMON_006"
	ErrCodeExternalService ErrorCode = "COMMON_007"
	ErrCodeTooManyRequests ErrorCode = "COMMON_008"
)

// Index and search error codes.
const (
	ErrCodeIndexLoad          ErrorCode = "IDX_001"
	ErrCodeIndexDimMismatch   ErrorCode = "IDX_002"
	ErrCodeIndexEmpty         ErrorCode = "IDX_003"
	ErrCodeSearchFailed       ErrorCode = "SRCH_001"
	ErrCodeFilterInvalid      ErrorCode = "SRCH_002"
	ErrCodeEmbeddingFailed    ErrorCode = "SRCH_003"
	ErrCodeInferenceFailed    ErrorCode = "SRCH_004"
	ErrCodeResolutionFailed   ErrorCode = "SRCH_005"
	ErrCodeFingerprintInvalid ErrorCode = "SRCH_006"
)

// Ingest error codes.
const (
	ErrCodeIngestFetchFailed ErrorCode = "ING_001"
	ErrCodeIngestParseFailed ErrorCode = "ING_002"
	ErrCodeIngestWriteFailed ErrorCode = "ING_003"
	ErrCodeMoleculeNotFound  ErrorCode = "ING_004"
	ErrCodeInvalidCID        ErrorCode = "ING_005"
)

// Configuration error codes.
const (
	ErrCodeConfigInvalid     ErrorCode = "CFG_001"
	ErrCodeCredentialMissing ErrorCode = "CFG_002"
)

// CodeUnknown marks an error that carries no molkit code, CodeOK the absence
// of an error.
const (
	CodeUnknown ErrorCode = "UNKNOWN"
	CodeOK      ErrorCode = "OK"
)

// HTTPStatus maps an ErrorCode to the HTTP status the API layer should return.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeFilterInvalid, ErrCodeInvalidCID:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeMoleculeNotFound:
		return http.StatusNotFound
	case ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeExternalService, ErrCodeEmbeddingFailed, ErrCodeInferenceFailed, ErrCodeResolutionFailed:
		return http.StatusBadGateway
	case CodeOK:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
