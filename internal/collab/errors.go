package collab

import (
	"errors"
)

// wire error codes
const (
	CodeDuplicateParticipant = "duplicate_participant"
	CodeUnknownParticipant   = "unknown_participant"
	CodeLockHeld             = "lock_held"
	CodeNotLockHolder        = "not_lock_holder"
	CodeCommentNotFound      = "comment_not_found"
	CodeNestedReply          = "nested_reply"
	CodeValidationError      = "validation_error"
	CodeBadRequest           = "bad_request"
	CodeSessionNotFound      = "session_not_found"
	CodeServerError          = "server_error"
)

// a core error that maps onto a wire code
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrDuplicateParticipant = &Error{Code: CodeDuplicateParticipant, Message: "participant is already active in this session"}
	ErrUnknownParticipant   = &Error{Code: CodeUnknownParticipant, Message: "participant is not in this session"}
	ErrNotLockHolder        = &Error{Code: CodeNotLockHolder, Message: "edit lock is not held by you"}
	ErrCommentNotFound      = &Error{Code: CodeCommentNotFound, Message: "comment not found"}
	ErrNestedReply          = &Error{Code: CodeNestedReply, Message: "replies cannot be replied to"}
	ErrResolveReply         = &Error{Code: CodeNestedReply, Message: "replies are resolved with their top-level comment"}
	ErrEmptyContent         = &Error{Code: CodeValidationError, Message: "content must not be empty"}
	ErrContentTooLong       = &Error{Code: CodeValidationError, Message: "content exceeds 5000 characters"}
	ErrDocumentTooLarge     = &Error{Code: CodeValidationError, Message: "document content exceeds 48 KB"}
	ErrLockRequired         = &Error{Code: CodeNotLockHolder, Message: "take the edit lock before editing content"}
	ErrInvalidPosition      = &Error{Code: CodeValidationError, Message: "position needs finite x and y and a page of at least 1"}
	ErrInvalidPayload       = &Error{Code: CodeBadRequest, Message: "invalid message payload"}
	ErrUnknownCommand       = &Error{Code: CodeBadRequest, Message: "unsupported message type"}
	ErrSessionNotFound      = &Error{Code: CodeSessionNotFound, Message: "session not found"}

	// returned by a session that was removed from the registry between lookup and join
	errSessionClosed = errors.New("session closed")
)

// reports the participant currently holding the edit lock
type LockHeldError struct {
	Holder string
}

func (e *LockHeldError) Error() string {
	return "edit lock is held by " + e.Holder
}

// returns the wire code for an error produced by this package
func ErrorCode(err error) string {
	var held *LockHeldError
	if errors.As(err, &held) {
		return CodeLockHeld
	}

	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}

	return CodeServerError
}

// returns the lock holder carried by a lock_held error
func LockHolder(err error) (string, bool) {
	var held *LockHeldError
	if errors.As(err, &held) {
		return held.Holder, true
	}

	return "", false
}
