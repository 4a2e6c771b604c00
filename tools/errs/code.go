package errs

// business codes
const (
	CodeInternal     = 500
	CodeBadParam     = 1001
	CodeTokenInvalid = 1101
	CodeUnauthorized = 1102

	CodeRoomNotFound = 1201
	CodeNotInRoom    = 1202

	CodeUserNotFound = 1301
)

var (
	ErrInternal     = NewCodeError(CodeInternal, "internal error")
	ErrBadParam     = NewCodeError(CodeBadParam, "bad request parameter")
	ErrTokenInvalid = NewCodeError(CodeTokenInvalid, "token invalid or expired")
	ErrUnauthorized = NewCodeError(CodeUnauthorized, "unauthorized")

	// ErrRoomNotFound signals a broadcast or lookup against a room id that
	// does not exist. Callers hitting this have a logic bug upstream.
	ErrRoomNotFound = NewCodeError(CodeRoomNotFound, "room not found")
	ErrNotInRoom    = NewCodeError(CodeNotInRoom, "user is not a member of the room")

	ErrUserNotFound = NewCodeError(CodeUserNotFound, "user not found")
)
