// Package model holds the value types exchanged between the fetcher, the
// retry policy and the batch scheduler.
package model

import "strings"

// DownloadRequest is one unit of work: a source URL and an optional
// preferred file name.
type DownloadRequest struct {
	SourceURL     string `json:"url"`
	SuggestedName string `json:"name,omitempty"`
}

// NewDownloadRequest trims both values.
func NewDownloadRequest(sourceURL, suggestedName string) DownloadRequest {
	return DownloadRequest{
		SourceURL:     strings.TrimSpace(sourceURL),
		SuggestedName: strings.TrimSpace(suggestedName),
	}
}

// HasSuggestedName reports whether the caller supplied a name.
func (r DownloadRequest) HasSuggestedName() bool {
	return r.SuggestedName != ""
}
