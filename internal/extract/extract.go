// Package extract fetches an order document from the object store and parses
// it into raw order records.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/model"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/source"
)

// ExtractionError reports a failed extraction. Transient distinguishes
// store/network failures (worth retrying in a later run) from malformed
// payloads (which need a corrected source document).
type ExtractionError struct {
	Bucket    string
	Key       string
	Transient bool
	Err       error
}

func (e *ExtractionError) Error() string {
	kind := "malformed"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("extract %s/%s: %s: %v", e.Bucket, e.Key, kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor reads order documents by key.
type Extractor struct {
	Store source.Store
}

// Extract fetches the object and decodes it as a JSON array of nested order
// objects. The top-level shape must be an array; anything else is a
// malformed-payload failure. Field-level validation is the transformer's
// job, but the decode itself rejects mistyped fields.
func (e *Extractor) Extract(ctx context.Context, bucket, key string) ([]model.RawOrder, error) {
	raw, err := e.Store.Get(ctx, bucket, key)
	if err != nil {
		// Not-found and access-denied are operator errors, not retryable
		// blips, but they are store-side either way: the payload itself is
		// not at fault.
		transient := !errors.Is(err, source.ErrNotFound) && !errors.Is(err, source.ErrAccessDenied)
		return nil, &ExtractionError{Bucket: bucket, Key: key, Transient: transient, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, &ExtractionError{Bucket: bucket, Key: key, Err: fmt.Errorf("not valid JSON: %w", err)}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &ExtractionError{Bucket: bucket, Key: key, Err: fmt.Errorf("top-level shape is %v, want array", tok)}
	}

	var orders []model.RawOrder
	for dec.More() {
		var o model.RawOrder
		if err := dec.Decode(&o); err != nil {
			return nil, &ExtractionError{Bucket: bucket, Key: key, Err: fmt.Errorf("order %d: %w", len(orders), err)}
		}
		orders = append(orders, o)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ExtractionError{Bucket: bucket, Key: key, Err: fmt.Errorf("unterminated array: %w", err)}
	}

	return orders, nil
}
