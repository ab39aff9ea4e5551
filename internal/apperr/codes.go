package apperr

type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeAlreadyMember      Code = "ALREADY_MEMBER"
	CodeGroupFull          Code = "GROUP_FULL"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"
	CodeInternal           Code = "INTERNAL"
)
