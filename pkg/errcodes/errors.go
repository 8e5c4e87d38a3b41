package errcodes

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

const (
	CodeInvalidInput     = "invalid_input"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeVoiceUnavailable = "voice_unavailable"
	CodePlaybackFailed   = "playback_failed"
	CodeNetworkFailure   = "network_failure"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// HasCode reports whether err wraps an *Error with the given code, regardless
// of its message.
func HasCode(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		CodeNotFound,
	}
}

// Unauthorized returns a 401 error. The reason is appended to the message when
// given.
func Unauthorized(reason string) error {
	msg := "Unauthorized"
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{
		http.StatusUnauthorized,
		msg,
		CodeUnauthorized,
	}
}

// InvalidInput returns a 400 error for a request or argument that can't be
// acted on.
func InvalidInput(msg string) error {
	return &Error{
		http.StatusBadRequest,
		msg,
		CodeInvalidInput,
	}
}

// VoiceUnavailable is returned when speech is requested before the engine has
// any voice to speak with.
func VoiceUnavailable() error {
	return &Error{
		http.StatusServiceUnavailable,
		"No speech voice is available yet.",
		CodeVoiceUnavailable,
	}
}

// PlaybackFailed wraps an error reported by the speech engine mid-utterance.
func PlaybackFailed(cause error) error {
	return &Error{
		http.StatusInternalServerError,
		fmt.Sprintf("Playback failed: %v", cause),
		CodePlaybackFailed,
	}
}

// NetworkFailure is returned when the sync server can't be reached or answers
// with something unexpected.
func NetworkFailure(cause error) error {
	return &Error{
		http.StatusBadGateway,
		fmt.Sprintf("Sync server unreachable: %v", cause),
		CodeNetworkFailure,
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusBadRequest,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusBadRequest,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusBadRequest,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Invalid request body",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
