package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeExternalService    ErrorCode = "COMMON_010"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
)

// Table I/O error codes
const (
	ErrCodeTableUnsupportedFormat ErrorCode = "TBL_001"
	ErrCodeTableReadFailed        ErrorCode = "TBL_002"
	ErrCodeTableWriteFailed       ErrorCode = "TBL_003"
	ErrCodeTableEmpty             ErrorCode = "TBL_004"
	ErrCodeColumnNotFound         ErrorCode = "TBL_005"
	ErrCodeColumnNotNumeric       ErrorCode = "TBL_006"
	ErrCodeTableRagged            ErrorCode = "TBL_007"
)

// Molecule handling error codes
const (
	ErrCodeInvalidSMILES           ErrorCode = "MOL_001"
	ErrCodeFingerprintFailed       ErrorCode = "MOL_002"
	ErrCodeSimilarityFailed        ErrorCode = "MOL_003"
	ErrCodeFragmentationFailed     ErrorCode = "MOL_004"
	ErrCodeCompoundNotFound        ErrorCode = "MOL_005"
	ErrCodeFingerprintDimMismatch  ErrorCode = "MOL_006"
)

// Visualization / projection error codes
const (
	ErrCodeProjectionFailed       ErrorCode = "VIZ_001"
	ErrCodeProjectionTooFewRows   ErrorCode = "VIZ_002"
	ErrCodeProjectionNoNumeric    ErrorCode = "VIZ_003"
	ErrCodeProjectionMethodUnknown ErrorCode = "VIZ_004"
	ErrCodePlotWriteFailed        ErrorCode = "VIZ_005"
)

// Pareto analysis error codes
const (
	ErrCodeParetoNoObjectives     ErrorCode = "PAR_001"
	ErrCodeParetoObjectiveInvalid ErrorCode = "PAR_002"
)

// Matched molecular pair error codes
const (
	ErrCodeMMPNoPairs          ErrorCode = "MMP_001"
	ErrCodeMMPPropertyMissing  ErrorCode = "MMP_002"
)

// SAR analysis error codes
const (
	ErrCodeSARNoScaffolds      ErrorCode = "SAR_001"
	ErrCodeSARActivityMissing  ErrorCode = "SAR_002"
)

// Lookup error codes
const (
	ErrCodeLookupIndexFailed   ErrorCode = "LKP_001"
	ErrCodeLookupQueryInvalid  ErrorCode = "LKP_002"
)

// Bioisostere error codes
const (
	ErrCodeBioisostereNoMatch    ErrorCode = "BIO_001"
	ErrCodeBioisostereRuleInvalid ErrorCode = "BIO_002"
)

// Run-directory / pipeline error codes
const (
	ErrCodeRunNotFound        ErrorCode = "RUN_001"
	ErrCodeRunCreateFailed    ErrorCode = "RUN_002"
	ErrCodeRunBundleFailed    ErrorCode = "RUN_003"
	ErrCodeToolkitUnavailable ErrorCode = "RUN_004"
	ErrCodeToolkitStepFailed  ErrorCode = "RUN_005"
)

// ErrorCodeHTTPStatus maps each code family to the HTTP status returned by
// the dashboard API.  Codes absent from the map default to 500.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeTableUnsupportedFormat: http.StatusUnsupportedMediaType,
	ErrCodeTableReadFailed:        http.StatusBadRequest,
	ErrCodeTableWriteFailed:       http.StatusInternalServerError,
	ErrCodeTableEmpty:             http.StatusUnprocessableEntity,
	ErrCodeColumnNotFound:         http.StatusUnprocessableEntity,
	ErrCodeColumnNotNumeric:       http.StatusUnprocessableEntity,
	ErrCodeTableRagged:            http.StatusBadRequest,

	ErrCodeInvalidSMILES:          http.StatusUnprocessableEntity,
	ErrCodeFingerprintFailed:      http.StatusInternalServerError,
	ErrCodeSimilarityFailed:       http.StatusInternalServerError,
	ErrCodeFragmentationFailed:    http.StatusUnprocessableEntity,
	ErrCodeCompoundNotFound:       http.StatusNotFound,
	ErrCodeFingerprintDimMismatch: http.StatusUnprocessableEntity,

	ErrCodeProjectionFailed:        http.StatusInternalServerError,
	ErrCodeProjectionTooFewRows:    http.StatusUnprocessableEntity,
	ErrCodeProjectionNoNumeric:     http.StatusUnprocessableEntity,
	ErrCodeProjectionMethodUnknown: http.StatusBadRequest,
	ErrCodePlotWriteFailed:         http.StatusInternalServerError,

	ErrCodeParetoNoObjectives:     http.StatusBadRequest,
	ErrCodeParetoObjectiveInvalid: http.StatusUnprocessableEntity,

	ErrCodeMMPNoPairs:         http.StatusUnprocessableEntity,
	ErrCodeMMPPropertyMissing: http.StatusUnprocessableEntity,

	ErrCodeSARNoScaffolds:     http.StatusUnprocessableEntity,
	ErrCodeSARActivityMissing: http.StatusUnprocessableEntity,

	ErrCodeLookupIndexFailed:  http.StatusInternalServerError,
	ErrCodeLookupQueryInvalid: http.StatusBadRequest,

	ErrCodeBioisostereNoMatch:     http.StatusNotFound,
	ErrCodeBioisostereRuleInvalid: http.StatusUnprocessableEntity,

	ErrCodeRunNotFound:        http.StatusNotFound,
	ErrCodeRunCreateFailed:    http.StatusInternalServerError,
	ErrCodeRunBundleFailed:    http.StatusInternalServerError,
	ErrCodeToolkitUnavailable: http.StatusFailedDependency,
	ErrCodeToolkitStepFailed:  http.StatusBadGateway,
}

// ErrorCodeMessage supplies a default message per code for callers that have
// nothing better to say.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "operation timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeTableUnsupportedFormat: "unsupported table format",
	ErrCodeTableReadFailed:        "failed to read table",
	ErrCodeTableWriteFailed:       "failed to write table",
	ErrCodeTableEmpty:             "table has no data rows",
	ErrCodeColumnNotFound:         "column not found",
	ErrCodeColumnNotNumeric:       "column is not numeric",
	ErrCodeTableRagged:            "table rows have inconsistent widths",

	ErrCodeInvalidSMILES:          "invalid SMILES string",
	ErrCodeFingerprintFailed:      "fingerprint generation failed",
	ErrCodeSimilarityFailed:       "similarity computation failed",
	ErrCodeFragmentationFailed:    "molecule fragmentation failed",
	ErrCodeCompoundNotFound:       "compound not found",
	ErrCodeFingerprintDimMismatch: "fingerprints differ in type or length",

	ErrCodeProjectionFailed:        "projection failed",
	ErrCodeProjectionTooFewRows:    "too few rows for projection",
	ErrCodeProjectionNoNumeric:     "no numeric columns available for projection",
	ErrCodeProjectionMethodUnknown: "unknown projection method",
	ErrCodePlotWriteFailed:         "failed to write plot",

	ErrCodeParetoNoObjectives:     "no Pareto objectives specified",
	ErrCodeParetoObjectiveInvalid: "invalid Pareto objective",

	ErrCodeMMPNoPairs:         "no matched molecular pairs found",
	ErrCodeMMPPropertyMissing: "property column required for MMP analysis",

	ErrCodeSARNoScaffolds:     "no scaffolds could be derived",
	ErrCodeSARActivityMissing: "activity column required for SAR analysis",

	ErrCodeLookupIndexFailed:  "lookup index build failed",
	ErrCodeLookupQueryInvalid: "invalid lookup query",

	ErrCodeBioisostereNoMatch:     "no bioisostere rule matches the query",
	ErrCodeBioisostereRuleInvalid: "invalid bioisostere rule",

	ErrCodeRunNotFound:        "run not found",
	ErrCodeRunCreateFailed:    "failed to create run directory",
	ErrCodeRunBundleFailed:    "failed to bundle run directory",
	ErrCodeToolkitUnavailable: "toolkit command not available",
	ErrCodeToolkitStepFailed:  "toolkit pipeline step failed",
}

// HTTPStatusForCode returns the HTTP status for an ErrorCode, defaulting to 500.
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

// IsClientError reports whether the code maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the code maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the family prefix of an ErrorCode ("TBL", "VIZ", ...).
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
