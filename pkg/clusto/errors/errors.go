package errors

import (
	"fmt"
	"unicode/utf8"
)

var ErrConfiguration = fmt.Errorf("configuration error")
var ErrTransport = fmt.Errorf("transport error")
var ErrRemote = fmt.Errorf("remote error")
var ErrDecode = fmt.Errorf("decode error")
var ErrInternal = fmt.Errorf("internal error")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewConfigurationError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrConfiguration,
	}
}

func NewDecodeError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrDecode,
	}
}

func NewInternalError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInternal,
	}
}

//TransportError wraps a failure of the transport itself (dns, refused connections, ...)
//without altering it, so that callers can still inspect the original error
type TransportError struct {
	Err error
}

func NewTransportError(err error) error {
	return &TransportError{Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send request: %s", e.Err.Error())
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

//RemoteError is returned for every response with a status code outside of 2xx.
//The body is kept as is and never parsed.
type RemoteError struct {
	StatusCode int
	Body       []byte
}

func NewRemoteError(code int, body []byte) error {
	return &RemoteError{
		StatusCode: code,
		Body:       body,
	}
}

func (e *RemoteError) Error() string {
	const maxBodyLen int = 256

	body := string(e.Body)
	if len(body) > maxBodyLen {
		cut := maxBodyLen
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}

	return fmt.Sprintf("clusto returned status code %d (body: %s)", e.StatusCode, body)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }
