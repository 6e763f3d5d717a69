package http

import (
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sagarc03/ossd"
)

// ErrorResponse is the S3 XML error envelope.
type ErrorResponse struct {
	XMLName   xml.Name `xml:"Error"`
	Code      string   `xml:"Code"`
	Message   string   `xml:"Message"`
	Resource  string   `xml:"Resource"`
	RequestID string   `xml:"RequestId"`
}

// ListBucketResult is the ListObjectsV2 response body.
type ListBucketResult struct {
	XMLName               xml.Name    `xml:"ListBucketResult"`
	Name                  string      `xml:"Name"`
	Prefix                string      `xml:"Prefix"`
	MaxKeys               int         `xml:"MaxKeys"`
	KeyCount              int         `xml:"KeyCount"`
	IsTruncated           bool        `xml:"IsTruncated"`
	ContinuationToken     string      `xml:"ContinuationToken,omitempty"`
	NextContinuationToken string      `xml:"NextContinuationToken,omitempty"`
	Contents              []ListEntry `xml:"Contents"`
}

// ListEntry is one object in a ListBucketResult.
type ListEntry struct {
	Key  string `xml:"Key"`
	Size int64  `xml:"Size"`
	ETag string `xml:"ETag"`
}

// CopyObjectResult is the CopyObject response body.
type CopyObjectResult struct {
	XMLName      xml.Name `xml:"CopyObjectResult"`
	ETag         string   `xml:"ETag"`
	LastModified string   `xml:"LastModified"`
}

// WriteXML writes an XML response with the standard declaration prefix.
func WriteXML(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(code)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		slog.Error("failed to write xml header", "error", err)
		return
	}
	if err := xml.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode xml response", "error", err)
	}
}

// WriteS3Error writes an S3 XML error envelope.
func WriteS3Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteXML(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Resource:  r.URL.Path,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// HandleError maps engine errors onto S3 error responses.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request error", "method", r.Method, "path", r.URL.Path, "error", err)

	switch {
	case errors.Is(err, ossd.ErrNotFound):
		WriteS3Error(w, r, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
	case errors.Is(err, ossd.ErrInvalidInput):
		WriteS3Error(w, r, http.StatusBadRequest, "InvalidArgument", err.Error())
	case errors.Is(err, ossd.ErrConfiguration):
		WriteS3Error(w, r, http.StatusNotImplemented, "NotImplemented", err.Error())
	default:
		WriteS3Error(w, r, http.StatusInternalServerError, "InternalError", "We encountered an internal error. Please try again.")
	}
}
