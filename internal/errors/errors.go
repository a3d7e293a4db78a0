package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
)

// ErrorType groups errors by where they originate
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeFetch      ErrorType = "fetch"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeModel      ErrorType = "model"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes
const (
	ErrCodeEmptyResume       = "EMPTY_RESUME"
	ErrCodeEmptyJobText      = "EMPTY_JOB_TEXT"
	ErrCodeMissingUserID     = "MISSING_USER_ID"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidURL        = "FETCH_INVALID_URL"
	ErrCodeFetchStatus       = "FETCH_STATUS"
	ErrCodeFetchUnreachable  = "FETCH_UNREACHABLE"
	ErrCodeFetchEmpty        = "FETCH_EMPTY"
	ErrCodeParseEmptyInput   = "PARSE_EMPTY_INPUT"
	ErrCodeParseBadEncoding  = "PARSE_BAD_ENCODING"
	ErrCodeModelUnavailable  = "MODEL_UNAVAILABLE"
	ErrCodeModelBadOutput    = "MODEL_BAD_OUTPUT"
	ErrCodeModelTimeout      = "MODEL_TIMEOUT"
	ErrCodeProgressConflict  = "PROGRESS_CONFLICT"
	ErrCodeProgressStore     = "PROGRESS_STORE"
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeMissingAPIKey     = "MISSING_API_KEY"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
)

// AppError is the error every layer wraps failures in: a stable code for
// clients, a message for humans and optional structured context for logs.
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Cause != nil {
		msg += " (caused by: " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair that LogError emits as a log field
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// err builds an AppError of this type
func (t ErrorType) err(code, message string, cause error) *AppError {
	return &AppError{Type: t, Code: code, Message: message, Cause: cause}
}

// Constructors, one per error type
func NewValidationError(code, message string, cause error) *AppError {
	return ErrorTypeValidation.err(code, message, cause)
}

func NewFetchError(code, message string, cause error) *AppError {
	return ErrorTypeFetch.err(code, message, cause)
}

func NewParseError(code, message string, cause error) *AppError {
	return ErrorTypeParse.err(code, message, cause)
}

func NewModelError(code, message string, cause error) *AppError {
	return ErrorTypeModel.err(code, message, cause)
}

func NewConflictError(code, message string, cause error) *AppError {
	return ErrorTypeConflict.err(code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return ErrorTypeIO.err(code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return ErrorTypeConfig.err(code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return ErrorTypeInternal.err(code, message, cause)
}

// GetType returns the error's type, or ErrorTypeInternal for plain errors
func GetType(err error) ErrorType {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetAppError unwraps err to its *AppError, or nil for plain errors
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, typ ErrorType) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Type == typ
}

func IsValidationError(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsFetchError(err error) bool      { return IsType(err, ErrorTypeFetch) }
func IsParseError(err error) bool      { return IsType(err, ErrorTypeParse) }
func IsModelError(err error) bool      { return IsType(err, ErrorTypeModel) }
func IsConflictError(err error) bool   { return IsType(err, ErrorTypeConflict) }

// IsRetryable reports whether a step failure is transient and worth another
// attempt. Fetch and model failures are; validation, parse and conflict
// failures are not (conflicts have their own fresh-read retry in the
// progress tracker).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type == ErrorTypeFetch || appErr.Type == ErrorTypeModel
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return stderrors.Is(err, context.DeadlineExceeded)
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger on stdout at the given level
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler)}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// New creates a logger from a level name
func New(level string) (*Logger, error) {
	slogLevel, ok := logLevels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	return NewLogger(slogLevel), nil
}

// LogError logs at error level. AppErrors, wrapped or not, contribute their
// type, code, message and context as structured fields.
func (l *Logger) LogError(err error, message string, args ...any) {
	appErr := GetAppError(err)
	if appErr == nil {
		l.logger.Error(message, append([]any{"error", err.Error()}, args...)...)
		return
	}

	logArgs := make([]any, 0, 6+2*len(appErr.Context)+len(args))
	logArgs = append(logArgs,
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message)
	for key, value := range appErr.Context {
		logArgs = append(logArgs, key, value)
	}
	logArgs = append(logArgs, args...)

	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any)  { l.logger.Info(message, args...) }
func (l *Logger) Debug(message string, args ...any) { l.logger.Debug(message, args...) }
func (l *Logger) Warn(message string, args ...any)  { l.logger.Warn(message, args...) }
