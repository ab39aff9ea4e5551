package apperr

var (
	ErrNotFound      = NotFound("not found")
	ErrForbidden     = Forbidden("forbidden")
	ErrAlreadyExists = AlreadyExists("already exists")
	ErrAlreadyMember = AlreadyMember("already a member")
	ErrGroupFull     = GroupFull("group is full")
	ErrInvalid       = InvalidArg("invalid argument")
	ErrInvariant     = New(CodeInvariantViolation, "invariant violation")
)
