package portal

import (
	"strconv"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// Request is one parsed inbound request.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	// Query is parsed from the request target but never applied.
	Query map[string]string
	// Form holds the decoded body of a well-formed POST.
	Form map[string]string
	// Headers maps lower-cased header names to their last value.
	Headers map[string]string

	HasContentType   bool // form-encoded Content-Type present
	HasContentLength bool // numeric Content-Length present
	ContentLength    int
}

// Target returns the path and query as sent by the client.
func (r *Request) Target() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

// ParseRequest parses the bytes of a single read. It never fails: invalid
// UTF-8 is dropped and a missing or malformed request line leaves Method
// empty, which routes to the no-content response.
func ParseRequest(raw []byte) *Request {
	text := strings.ToValidUTF8(string(raw), "")

	req := &Request{
		Query:   map[string]string{},
		Form:    map[string]string{},
		Headers: map[string]string{},
	}

	head, body, _ := strings.Cut(text, "\r\n\r\n")
	lines := strings.Split(head, "\r\n")

	fields := strings.Fields(lines[0])
	if len(fields) >= 2 {
		req.Method = fields[0]
		req.Path, req.RawQuery, _ = strings.Cut(fields[1], "?")
		if req.RawQuery != "" {
			req.Query = DecodeForm(req.RawQuery)
		}
	}

	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		req.Headers[name] = value

		switch name {
		case "content-type":
			req.HasContentType = strings.Contains(strings.ToLower(value), formContentType)
		case "content-length":
			n, err := strconv.Atoi(value)
			req.HasContentLength = err == nil && n >= 0 && isDigits(value)
			if req.HasContentLength {
				req.ContentLength = n
			}
		}
	}

	if req.Method == "POST" && req.HasContentType && req.HasContentLength {
		if len(body) > req.ContentLength {
			body = body[:req.ContentLength]
		}
		req.Form = DecodeForm(body)
	}

	return req
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
