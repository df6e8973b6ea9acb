package mock

import (
	"encoding/json"
	"fmt"

	"github.com/gaborage/restbricks/rest"
)

// Response is a scripted response. Body is handed to the client as-is, so
// a decoded value reads straight from this slice.
type Response struct {
	Status  int
	Headers []rest.Header
	Body    []byte
}

// NewResponse creates a response with raw body bytes.
func NewResponse(status int, body []byte) Response {
	return Response{Status: status, Body: body}
}

// Text creates a response with a plain text body.
func Text(status int, body string) Response {
	return Response{
		Status:  status,
		Headers: []rest.Header{{Name: "Content-Type", Value: "text/plain; charset=utf-8"}},
		Body:    []byte(body),
	}
}

// TextError is Text for failure statuses.
func TextError(status int, message string) Response {
	return Text(status, message)
}

// JSON creates a response whose body is payload encoded as JSON.
func JSON(status int, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode mock JSON body: %w", err)
	}
	return Response{
		Status:  status,
		Headers: []rest.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:    body,
	}, nil
}

// JSONError is JSON for failure statuses.
func JSONError(status int, payload any) (Response, error) {
	return JSON(status, payload)
}

// MustJSON is JSON that panics on encoding errors. Intended for test setup.
func MustJSON(status int, payload any) Response {
	resp, err := JSON(status, payload)
	if err != nil {
		panic(err)
	}
	return resp
}

// WithHeader returns a copy with the header appended.
func (r Response) WithHeader(name, value string) Response {
	headers := make([]rest.Header, len(r.Headers), len(r.Headers)+1)
	copy(headers, r.Headers)
	r.Headers = append(headers, rest.Header{Name: name, Value: value})
	return r
}

func (r Response) toRest(withHeaders bool) *rest.Response {
	resp := &rest.Response{Status: r.Status, Body: r.Body}
	if withHeaders && len(r.Headers) > 0 {
		resp.Headers = make([]rest.Header, len(r.Headers))
		copy(resp.Headers, r.Headers)
	}
	return resp
}
