// Package json defines the JSON wire formats of docchat: relay error bodies,
// document listings, and conversation transcripts.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/docchat"
)

// Error codes carried in [ErrorBody].
const (
	CodeEmptyQuery          = "empty_query"
	CodeValidation          = "validation"
	CodeNoDocument          = "no_document"
	CodeUnsupportedDocument = "unsupported_document"
	CodeSessionActive       = "session_active"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeUpstreamRejected    = "upstream_rejected"
	CodeRateLimited         = "rate_limited"
	CodeUnauthorized        = "unauthorized"
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeInternal            = "internal"
)

// ErrRateLimited and ErrUnauthorized are relay rejections that have no
// domain sentinel.
var (
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUnauthorized = errors.New("authorization required")
)

// ErrorBody is the body of every non-2xx relay response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var codes = []struct {
	code string
	err  error
}{
	{CodeEmptyQuery, docchat.ErrEmptyQuery},
	{CodeNoDocument, docchat.ErrNoActiveDocument},
	{CodeUnsupportedDocument, docchat.ErrUnsupportedDocument},
	{CodeSessionActive, docchat.ErrSessionActive},
	{CodeUpstreamUnavailable, docchat.ErrUpstreamUnavailable},
	{CodeUpstreamRejected, docchat.ErrUpstreamRejected},
	{CodeRateLimited, ErrRateLimited},
	{CodeUnauthorized, ErrUnauthorized},
	{CodeValidation, docchat.ErrValidation},
}

// NewErrorBody describes err for a client. Only sentinel descriptions are
// exposed; anything unclassified is reported as an internal error.
func NewErrorBody(err error) ErrorBody {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return ErrorBody{Error: c.err.Error(), Code: c.code}
		}
	}
	return ErrorBody{Error: "internal error", Code: CodeInternal}
}

// Err converts a received body back into an error that matches the
// corresponding sentinel with errors.Is.
func (b ErrorBody) Err() error {
	for _, c := range codes {
		if b.Code == c.code {
			return fmt.Errorf("%s: %w", b.Error, c.err)
		}
	}
	return errors.New(b.Error)
}

// UnmarshalError decodes an error body. A body that is not JSON is kept as
// the message.
func UnmarshalError(data []byte) ErrorBody {
	var b ErrorBody
	if err := json.Unmarshal(data, &b); err != nil || b.Error == "" {
		return ErrorBody{Error: string(data)}
	}
	return b
}

// Document is the listing entry returned by the relay.
type Document struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// DocumentList is the body of the document listing.
type DocumentList struct {
	Documents []Document `json:"documents"`
}

// NewDocumentList converts domain documents to their wire form.
func NewDocumentList(docs []docchat.Document) DocumentList {
	list := DocumentList{Documents: make([]Document, len(docs))}
	for i, d := range docs {
		list.Documents[i] = Document(d)
	}
	return list
}

// UnmarshalDocuments decodes a document listing.
func UnmarshalDocuments(data []byte) ([]docchat.Document, error) {
	var list DocumentList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	docs := make([]docchat.Document, len(list.Documents))
	for i, d := range list.Documents {
		docs[i] = docchat.Document(d)
	}
	return docs, nil
}
