package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

var ErrMalformedFeed = errors.New("malformed feed payload")

// flexString accepts a JSON string or number. Anything else decodes as empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0:
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*f = flexString(strings.TrimSpace(s))
		}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*f = flexString(b)
	}
	return nil
}

// flexFloat accepts a JSON number or a numeric string. Set reports whether a finite value was read.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	_ = s.UnmarshalJSON(b)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*f = flexFloat{Value: v, Set: true}
	return nil
}

// flexInt is flexFloat truncated to an integer.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var fl flexFloat
	_ = fl.UnmarshalJSON(b)
	if fl.Set {
		*f = flexInt{Value: int64(fl.Value), Set: true}
	}
	return nil
}

// flexStrings accepts an array of strings/numbers or a single string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	if b[0] != '[' {
		var s flexString
		_ = s.UnmarshalJSON(b)
		if s != "" {
			*f = flexStrings{string(s)}
		}
		return nil
	}
	var items []flexString
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	out := make(flexStrings, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, string(it))
		}
	}
	*f = out
	return nil
}

// first returns the first non-empty value.
func first[T ~string](values ...T) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

var envelopeKeys = []string{"data", "results", "items"}

// elements splits a payload into its array elements. The array may be top level or wrapped in an
// object under one of the envelope keys.
func elements(data []byte, feed string) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedFeed, feed, err)
	}
	for _, key := range envelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %w", ErrMalformedFeed, feed, key, err)
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w: %s: no array found", ErrMalformedFeed, feed)
}

// decodeEach unmarshals every element into T, skipping the ones that are not objects.
func decodeEach[T any](elems []json.RawMessage, feed string) []T {
	out := make([]T, 0, len(elems))
	for i, raw := range elems {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			slog.Debug("adapter: skipped element", "feed", feed, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// flexList decodes an array leniently: non-array values decode as empty and elements that do not
// fit T are dropped.
type flexList[T any] []T

func (f *flexList[T]) UnmarshalJSON(b []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		return nil
	}
	*f = decodeEach[T](elems, "nested")
	return nil
}
