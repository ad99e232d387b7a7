// Package testutil provides helpers shared by redlimit tests: an HTTP
// request builder for exercising gin engines and an in-memory redis
// setup backed by miniredis.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

// RequestBuilder builds and performs test HTTP requests.
type RequestBuilder struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
	query   map[string]string
}

// NewRequest creates a request builder.
func NewRequest(method, path string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		path:    path,
		headers: make(map[string]string),
		query:   make(map[string]string),
	}
}

// WithJSON sets a JSON body.
func (rb *RequestBuilder) WithJSON(body interface{}) *RequestBuilder {
	rb.body = body
	return rb
}

// WithHeader sets a request header.
func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.headers[key] = value
	return rb
}

// WithQuery sets a query parameter.
func (rb *RequestBuilder) WithQuery(key, value string) *RequestBuilder {
	rb.query[key] = value
	return rb
}

// WithTraceID sets the X-Trace-ID header.
func (rb *RequestBuilder) WithTraceID(traceID string) *RequestBuilder {
	return rb.WithHeader("X-Trace-ID", traceID)
}

// WithBearer sets a bearer token in the Authorization header.
func (rb *RequestBuilder) WithBearer(token string) *RequestBuilder {
	return rb.WithHeader("Authorization", "Bearer "+token)
}

// Do performs the request against engine and wraps the response.
func (rb *RequestBuilder) Do(engine *gin.Engine) *ResponseHelper {
	url := rb.path
	if len(rb.query) > 0 {
		url += "?"
		first := true
		for k, v := range rb.query {
			if !first {
				url += "&"
			}
			url += k + "=" + v
			first = false
		}
	}

	var bodyReader *bytes.Reader
	if rb.body != nil {
		bodyBytes, _ := json.Marshal(rb.body)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(rb.method, url, bodyReader)
	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}
	if rb.body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return &ResponseHelper{Recorder: w}
}

// ResponseHelper wraps a recorded response.
type ResponseHelper struct {
	Recorder *httptest.ResponseRecorder
}

// Status returns the response status code.
func (rh *ResponseHelper) Status() int {
	return rh.Recorder.Code
}

// Body returns the response body as a string.
func (rh *ResponseHelper) Body() string {
	return rh.Recorder.Body.String()
}

// JSON unmarshals the response body into v.
func (rh *ResponseHelper) JSON(v interface{}) error {
	return json.Unmarshal(rh.Recorder.Body.Bytes(), v)
}

// Header returns a response header value.
func (rh *ResponseHelper) Header(key string) string {
	return rh.Recorder.Header().Get(key)
}

// GET creates a GET request builder.
func GET(path string) *RequestBuilder {
	return NewRequest("GET", path)
}

// POST creates a POST request builder.
func POST(path string) *RequestBuilder {
	return NewRequest("POST", path)
}
