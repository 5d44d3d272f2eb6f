package domain

type Stage string

const (
	StageReceived        Stage = "received"
	StageValidated       Stage = "validated"
	StageValidationError Stage = "validation_error"
	StageAuthOK          Stage = "auth_ok"
	StageAuthError       Stage = "auth_error"
)

// StageForCode maps a rejection code back to the stage that produced it,
// for logging and the execution record. Codes emitted past authentication
// all belong to the dispatch outcome, which reports auth_ok.
func StageForCode(code string) Stage {
	switch code {
	case CodeValidationError:
		return StageValidationError
	case CodeMissingTimestamp, CodeTimestampSkew, CodeInvalidSignature, CodeAuthFailed:
		return StageAuthError
	default:
		return StageAuthOK
	}
}
