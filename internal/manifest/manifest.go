// Package manifest reads download request lists.
//
// Two formats are accepted:
//
//	# text: one request per line, optional name after whitespace
//	https://example.com/q1.pdf  Q1 Report
//
//	// JSON: bare strings, objects, or an envelope
//	["https://example.com/q1.pdf", {"url": "https://example.com/q2.pdf", "name": "Q2"}]
//	{"requests": [...]}
package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"reportfetch/internal/domain/model"
)

// ErrEmpty is returned when a manifest holds no requests.
var ErrEmpty = errors.New("manifest contains no requests")

// Format selects a parser.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Envelope is the object form of a JSON manifest.
type Envelope struct {
	Requests []Entry `json:"requests"`
}

// Entry is one JSON manifest element: a bare URL string or an object.
type Entry struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts "url" or {"url": ..., "name": ...}.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Entry{URL: s}
		return nil
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("entry must be a string or an object with \"url\": %w", err)
	}
	*e = Entry(p)
	return nil
}

// Parse reads requests from r. FormatAuto picks JSON when the first
// non-space byte is '[' or '{'.
func Parse(r io.Reader, format Format) ([]model.DownloadRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrRead(err)
	}

	if format == "" || format == FormatAuto {
		format = detect(data)
	}

	var reqs []model.DownloadRequest
	switch format {
	case FormatJSON:
		reqs, err = ParseJSON(data)
	case FormatText:
		reqs, err = parseText(data)
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, ErrEmpty
	}
	return reqs, nil
}

// ParseFile reads a manifest from path. The path "-" reads stdin instead.
func ParseFile(path string, stdin io.Reader, format Format) ([]model.DownloadRequest, error) {
	if path == StdinPath {
		return Parse(stdin, format)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrRead(err)
	}
	defer f.Close()
	return Parse(f, format)
}

// StdinPath names standard input in place of a manifest file.
const StdinPath = "-"

// ParseJSON decodes a JSON array of entries or an Envelope. Entries with an
// empty URL are rejected.
func ParseJSON(data []byte) ([]model.DownloadRequest, error) {
	var entries []Entry
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, ErrDecode(err)
		}
		entries = env.Requests
	} else if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, ErrDecode(err)
	}

	reqs := make([]model.DownloadRequest, 0, len(entries))
	for i, e := range entries {
		req := model.NewDownloadRequest(e.URL, e.Name)
		if req.SourceURL == "" {
			return nil, ErrDecode(fmt.Errorf("entry %d has no url", i))
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// FromArgs builds requests from command-line arguments, one URL each.
func FromArgs(args []string) []model.DownloadRequest {
	reqs := make([]model.DownloadRequest, 0, len(args))
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			continue
		}
		reqs = append(reqs, model.NewDownloadRequest(a, ""))
	}
	return reqs
}

func parseText(data []byte) ([]model.DownloadRequest, error) {
	var reqs []model.DownloadRequest
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		url, name := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			url, name = line[:i], line[i:]
		}
		reqs = append(reqs, model.NewDownloadRequest(url, name))
	}
	if err := sc.Err(); err != nil {
		return nil, ErrRead(err)
	}
	return reqs, nil
}

func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	return FormatText
}

// ErrRead wraps I/O failures.
func ErrRead(err error) error {
	return fmt.Errorf("failed to read manifest: %w", err)
}

// ErrDecode wraps malformed JSON manifests.
func ErrDecode(err error) error {
	return fmt.Errorf("failed to decode manifest: %w", err)
}
