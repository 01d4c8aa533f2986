package kyk

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// ErrNoRequest reports a render invoked without a request bound into its
// context. Fatal in debug mode; production renders degrade to empty output.
var ErrNoRequest = errors.New("kyk: no request bound into render context")

// maxMultipartMemory bounds in-memory buffering of uploaded files.
const maxMultipartMemory = 8 << 20 // 8 MB

// Request is the inbound request as seen by components: method, query
// parameters, body fields, uploaded files, the requesting user and the
// session map. Constructed fresh per inbound HTTP request.
type Request struct {
	Method  string
	Query   url.Values
	Form    url.Values
	Files   map[string][]*multipart.FileHeader
	User    User
	Session Session

	ctx context.Context
}

// FromHTTP builds a Request from an inbound HTTP request. Form bodies
// (urlencoded and multipart) are parsed eagerly so components see a plain
// value map.
func FromHTTP(r *http.Request, u User, s Session) *Request {
	req := &Request{
		Method:  r.Method,
		Query:   r.URL.Query(),
		Form:    url.Values{},
		User:    u,
		Session: s,
		ctx:     r.Context(),
	}
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		if err := r.ParseMultipartForm(maxMultipartMemory); err == nil && r.MultipartForm != nil {
			req.Files = r.MultipartForm.File
		} else {
			_ = r.ParseForm()
		}
		req.Form = r.PostForm
	}
	return req
}

// Context returns the request's context, or context.Background when the
// request was built outside an HTTP handler (tests, CLI rendering).
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// IsWrite reports whether the request mutates state (a POST-like method).
func (r *Request) IsWrite() bool {
	return r.Method == http.MethodPost || r.Method == http.MethodPut
}

// AsRead returns a copy of the request forced to a read with an empty
// body, for reload-as-GET semantics after login/logout/status changes.
func (r *Request) AsRead() *Request {
	cp := *r
	cp.Method = http.MethodGet
	cp.Form = url.Values{}
	cp.Files = nil
	return &cp
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func (r *Request) QueryInt(key string, def int) int {
	raw := r.Query.Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Session is the mutable per-visitor session map. The implementation is
// supplied by the hosting web stack; package web ships a cookie-backed one.
type Session interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
}

// MapSession is a plain in-memory Session, mainly for tests.
type MapSession map[string]any

func (m MapSession) Get(key string) (any, bool) { v, ok := m[key]; return v, ok }
func (m MapSession) Set(key string, value any)  { m[key] = value }
func (m MapSession) Delete(key string)          { delete(m, key) }
