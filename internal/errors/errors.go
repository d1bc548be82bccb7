package errors

import (
	"fmt"
)

type Fields map[string]interface{}

// APIError is the error shape returned by request handlers and the
// realtime command router. The code is stable for clients; the detail
// and fields are diagnostic.
type APIError interface {
	error
	Code() int
	Message() string
	ExpectedHTTPStatus() int
	GetFields() Fields
	SetDetail(str string, a ...any) APIError
	SetFields(d Fields) APIError
}

type apiError struct {
	message        string
	code           int
	expectedStatus int
	fields         Fields
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s [%d]", e.message, e.code)
}

func (e *apiError) Message() string {
	return e.message
}

func (e *apiError) Code() int {
	return e.code
}

func (e *apiError) ExpectedHTTPStatus() int {
	return e.expectedStatus
}

func (e *apiError) GetFields() Fields {
	return e.fields
}

func (e *apiError) SetDetail(str string, a ...any) APIError {
	e.message = fmt.Sprintf(e.message+": "+str, a...)

	return e
}

func (e *apiError) SetFields(d Fields) APIError {
	if e.fields == nil {
		e.fields = Fields{}
	}

	for k, v := range d {
		e.fields[k] = v
	}

	return e
}

func def(message string, code int, status int) func() APIError {
	return func() APIError {
		return &apiError{
			message:        message,
			code:           code,
			expectedStatus: status,
			fields:         Fields{},
		}
	}
}

// From wraps an arbitrary error into an APIError, passing it through
// unchanged if it already is one.
func From(err error) APIError {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(APIError); ok {
		return apiErr
	}

	return ErrInternalServerError().SetDetail(err.Error())
}

// Authentication (70xxx)
var (
	ErrMissingCredential   = def("Missing Credential", 70401, 401)
	ErrMalformedCredential = def("Malformed Credential", 70402, 401)
	ErrInvalidCredential   = def("Invalid Credential", 70403, 401)
	ErrUnauthorized        = def("Unauthorized", 70404, 401)
)

// Access (71xxx)
var (
	ErrInsufficientPrivilege = def("Insufficient Privilege", 71403, 403)
)

// Entities (72xxx)
var (
	ErrUnknownSession      = def("Unknown Session", 72404, 404)
	ErrUnknownTab          = def("Unknown Tab", 72405, 404)
	ErrUnknownCollaborator = def("Unknown Collaborator", 72406, 404)
	ErrMutationFailed      = def("Mutation Failed", 72500, 500)
)

// Requests (73xxx)
var (
	ErrBadRequest          = def("Bad Request", 73400, 400)
	ErrUnknownRoute        = def("Unknown Route", 73404, 404)
	ErrInternalServerError = def("Internal Server Error", 73500, 500)
)
