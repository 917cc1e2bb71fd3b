package core

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
)

// Response is the raw result of one exchange. Redirects are never followed,
// a 3xx comes back as is with its Location header.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

func (r *Response) Text() string {
	return string(r.Body)
}

func (r *Response) Contains(s string) bool {
	return bytes.Contains(r.Body, []byte(s))
}

func (r *Response) Location() string {
	return r.Header.Get("Location")
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsHTML() bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "text/html")
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

func (f File) contentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if t := mime.TypeByExtension(filepath.Ext(f.Name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// APIResponse is a parsed data api reply.
type APIResponse struct {
	*Response
	Doc *xmlquery.Node
}

// Find returns the text of the first node matching the xpath `expr`, ""
// when nothing matches.
func (r *APIResponse) Find(expr string) string {
	node, err := xmlquery.Query(r.Doc, expr)
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(node.InnerText())
}

func (r *APIResponse) FindAll(expr string) []string {
	nodes, err := xmlquery.QueryAll(r.Doc, expr)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(n.InnerText()))
	}
	return out
}
