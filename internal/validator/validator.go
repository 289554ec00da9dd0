// Package validator checks that a downloaded file starts with the expected
// magic bytes. The check is advisory: it never deletes or rewrites files.
package validator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"reportfetch/internal/observability/types"
)

const opValidate = "validate"

// DefaultSignature is the PDF header.
const DefaultSignature = "%PDF"

// Validator compares the first bytes of a file with a signature.
type Validator struct {
	signature []byte
	log       types.Logger
	metrics   types.Metrics
}

// New creates a Validator for signature (DefaultSignature when empty).
func New(signature string, log types.Logger, metrics types.Metrics) *Validator {
	if signature == "" {
		signature = DefaultSignature
	}
	return &Validator{
		signature: []byte(signature),
		log:       log,
		metrics:   metrics,
	}
}

// Validate reports whether the file at localPath begins with the signature.
// Only len(signature) bytes are read. Read failures yield false with a
// warning.
func (v *Validator) Validate(ctx context.Context, localPath string) bool {
	ok, err := v.check(localPath)
	if err != nil {
		v.log.Warn(ctx, "Could not read file for validation", types.Fields{
			"path":  localPath,
			"error": err.Error(),
		})
		v.metrics.RecordWarning(opValidate, "read_failed")
		return false
	}
	if !ok {
		v.log.Warn(ctx, "File does not start with expected signature", types.Fields{
			"path":      localPath,
			"signature": string(v.signature),
		})
		v.metrics.RecordWarning(opValidate, "invalid_signature")
		return false
	}
	v.metrics.RecordSuccess(opValidate)
	return true
}

func (v *Validator) check(localPath string) (bool, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(v.signature))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return bytes.Equal(head[:n], v.signature), nil
}
