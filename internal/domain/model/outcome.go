package model

// Success describes a file that was written to the destination directory.
// Valid and Warnings are advisory; the file exists either way.
type Success struct {
	SourceURL    string   `json:"url"`
	ResolvedName string   `json:"name"`
	LocalPath    string   `json:"path"`
	Bytes        int64    `json:"bytes"`
	ContentType  string   `json:"content_type,omitempty"`
	Valid        bool     `json:"valid"`
	Warnings     []string `json:"warnings,omitempty"`
	Attempts     int      `json:"attempts"`
	MirrorKey    string   `json:"mirror_key,omitempty"`
}

// AddWarning appends a non-fatal note.
func (s *Success) AddWarning(w string) {
	s.Warnings = append(s.Warnings, w)
}

// Failure describes a request that produced no file.
type Failure struct {
	SourceURL     string    `json:"url"`
	SuggestedName string    `json:"name,omitempty"`
	ErrorMessage  string    `json:"error"`
	Kind          ErrorKind `json:"kind"`
	Attempts      int       `json:"attempts"`
}

// NewFailure builds the Failure for req from the last error seen.
func NewFailure(req DownloadRequest, err error, attempts int) Failure {
	f := Failure{
		SourceURL:     req.SourceURL,
		SuggestedName: req.SuggestedName,
		Kind:          KindOf(err),
		Attempts:      attempts,
	}
	if err != nil {
		f.ErrorMessage = err.Error()
	}
	return f
}

// Outcome is exactly one of Success or Failure.
type Outcome struct {
	Success *Success
	Failure *Failure
}

// Succeeded wraps s.
func Succeeded(s Success) Outcome {
	return Outcome{Success: &s}
}

// Failed wraps f.
func Failed(f Failure) Outcome {
	return Outcome{Failure: &f}
}

// IsSuccess reports which variant is set.
func (o Outcome) IsSuccess() bool {
	return o.Success != nil
}

// IsZero reports whether neither variant is set (an unfilled slot).
func (o Outcome) IsZero() bool {
	return o.Success == nil && o.Failure == nil
}

// BatchResult aggregates the outcomes of one run, in input order within each
// list.
type BatchResult struct {
	Successes []Success `json:"successes"`
	Failures  []Failure `json:"failures"`
}

// NewBatchResult splits outcomes preserving their relative order.
func NewBatchResult(outcomes []Outcome) BatchResult {
	r := BatchResult{
		Successes: []Success{},
		Failures:  []Failure{},
	}
	for _, o := range outcomes {
		switch {
		case o.Success != nil:
			r.Successes = append(r.Successes, *o.Success)
		case o.Failure != nil:
			r.Failures = append(r.Failures, *o.Failure)
		}
	}
	return r
}

// Total is the number of outcomes.
func (r BatchResult) Total() int {
	return len(r.Successes) + len(r.Failures)
}

// InvalidCount counts successes whose content failed validation.
func (r BatchResult) InvalidCount() int {
	n := 0
	for _, s := range r.Successes {
		if !s.Valid {
			n++
		}
	}
	return n
}
