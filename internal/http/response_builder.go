// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON and attachment responses so
// every handler writes status, headers and body the same way.

package http

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
)

// ResponseBuilder provides a fluent API for building HTTP responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	value      interface{}
}

// NewJSONResponse creates a 200 response whose body is v encoded as JSON.
func NewJSONResponse(v interface{}) *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		value:      v,
	}
}

// NewAttachment creates a 200 download response for an export.
func NewAttachment(contentType, filename string, content []byte) *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers: map[string]string{
			"Content-Type":        contentType,
			"Content-Disposition": contentDisposition(filename),
			"Content-Length":      strconv.Itoa(len(content)),
		},
		body: content,
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	body := b.body
	if b.value != nil {
		encoded, err := json.Marshal(b.value)
		if err != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
			return
		}
		body = append(encoded, '\n')
	}

	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type okErrorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ErrorResponse creates the standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewJSONResponse(errorBody{Error: message}).Status(statusCode)
}

// OKErrorResponse creates {"ok": false, "error": message}, used by delete.
func OKErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewJSONResponse(okErrorBody{OK: false, Error: message}).Status(statusCode)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// contentDisposition quotes filename, falling back to RFC 2231 encoding for
// names outside plain ASCII.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
