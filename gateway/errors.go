package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/briangreenhill/postboard/apierror"
)

// Error is returned for every failed exchange: a non-2xx status, a response
// that never arrived, or a 2xx body that is not JSON.
type Error struct {
	Class      apierror.Kind
	Status     int // 0 when no response was received
	StatusText string
	Method     string
	URL        string
	Message    string
	Err        error
}

var (
	_ apierror.Classified  = (*Error)(nil)
	_ apierror.StatusCoder = (*Error)(nil)
)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Kind implements apierror.Classified.
func (e *Error) Kind() apierror.Kind { return e.Class }

// StatusCode implements apierror.StatusCoder.
func (e *Error) StatusCode() int { return e.Status }

// kindForStatus maps a non-2xx status to its classification.
func kindForStatus(code int) apierror.Kind {
	switch code {
	case http.StatusNotFound:
		return apierror.KindNotFound
	case http.StatusUnauthorized:
		return apierror.KindUnauthorized
	default:
		return apierror.KindServerFault
	}
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); text != "" {
		return text
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "status " + strconv.Itoa(resp.StatusCode)
}

func statusError(method, url string, resp *http.Response) *Error {
	text := statusText(resp)
	return &Error{
		Class:      kindForStatus(resp.StatusCode),
		Status:     resp.StatusCode,
		StatusText: text,
		Method:     method,
		URL:        url,
		Message:    "API error: " + text,
	}
}

func networkError(method, url string, err error) *Error {
	return &Error{
		Class:   apierror.KindNetwork,
		Method:  method,
		URL:     url,
		Message: "network unavailable: " + err.Error(),
		Err:     err,
	}
}
