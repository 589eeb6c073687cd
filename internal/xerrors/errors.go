// Package xerrors holds the user-safe error kinds returned by the account services.
package xerrors

import "errors"

// Error is a business-rule violation. Message is safe to show to the caller.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Registration
var (
	ErrPasswordMismatch          = newError("PASSWORD_MISMATCH", "password and confirm password are not same")
	ErrAdminRegistrationDisabled = newError("ADMIN_REGISTRATION_DISABLED", "admin registration is not allowed")
	ErrTermsNotAccepted          = newError("TERMS_AND_CONDITION_NOT_ACCEPTED", "please accept terms and condition")
	ErrInvalidRole               = newError("INVALID_ROLE", "role must be one of PATIENT, DOCTOR, PHARMACIST")
	ErrSpamDetected              = newError("SPAM_DETECTED", "too many registration attempts, please try later")
	ErrEmailExists               = newError("EMAIL_EXISTS", "user with the email already exists, please login")
	ErrDuplicateEntry            = newError("DUPLICATE_ENTRY", "email already exists")
)

// Login
var (
	ErrInvalidCredentials = newError("INVALID_CREDENTIALS", "invalid credentials")
	ErrEmailNotVerified   = newError("EMAIL_NOT_VERIFIED", "email not verified, please check your inbox")
	ErrAccountPending     = newError("ACCOUNT_PENDING", "account pending approval")
	ErrUnauthorized       = newError("UNAUTHORIZED", "user not authenticated")
)

// Verification
var (
	ErrInvalidToken        = newError("INVALID_TOKEN", "invalid verification token")
	ErrTokenAlreadyUsed    = newError("TOKEN_ALREADY_USED", "verification token already used")
	ErrTokenExpired        = newError("TOKEN_EXPIRED", "verification token expired, please request a new one")
	ErrAlreadyVerified     = newError("ALREADY_VERIFIED", "email already verified")
	ErrUserDeleted         = newError("USER_DELETED", "user account is deleted")
	ErrResendLimitExceeded = newError("RESEND_LIMIT_EXCEEDED", "too many verification emails sent, please try later")
)

// Profile
var (
	ErrResourceNotFound       = newError("RESOURCE_NOT_FOUND", "user not found")
	ErrInvalidJSON            = newError("INVALID_JSON", "invalid profile data format")
	ErrInvalidDate            = newError("INVALID_DATE", "invalid date format, use yyyy-MM-dd")
	ErrConcurrentModification = newError("CONCURRENT_MODIFICATION", "account was modified by another request, please retry")
)

// Files
var (
	ErrFileEmpty        = newError("FILE_EMPTY", "file is empty")
	ErrFileTooLarge     = newError("FILE_TOO_LARGE", "file size exceeds maximum allowed size")
	ErrInvalidFileType  = newError("INVALID_FILE_TYPE", "invalid file type")
	ErrFileUploadFailed = newError("FILE_UPLOAD_FAILED", "failed to upload file to cloud storage")
)

// Code returns the business code carried by err, or "" when err is not a business error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Message returns a caller-safe message for err. Detail wrapped around a business
// error with %w is kept; anything else collapses to a generic message.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	return err.Error()
}
