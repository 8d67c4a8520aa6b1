package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidHash      = 1004
	ErrCodeInvalidMedia     = 1005
	ErrCodeEmptyUpload      = 1006
	ErrCodeMissingRequired  = 1007
	ErrCodeInvalidTenant    = 1008
	ErrCodeInvalidTransform = 1009

	// Domain state (2xxx)
	ErrCodeObjectNotFound     = 2001
	ErrCodeCacheEntryNotFound = 2002
	ErrCodeQuotaNotFound      = 2003
	ErrCodeConflict           = 2101
	ErrCodeQuotaInUse         = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeQuotaExceeded     = 3004

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeBlobFailure  = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeObjectNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeQuotaExceeded
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
