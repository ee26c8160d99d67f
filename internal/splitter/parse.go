package splitter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const codeFence = "```"

// ParseJSONResponse decodes a model reply into v.
//
// Accepted grammar, surrounding whitespace ignored:
//
//	reply := [fence ["json"]] body [fence]
//
// where fence is three backticks and body is exactly one JSON value.
// Anything else is reported as ErrMalformedResponse.
func ParseJSONResponse(raw string, v any) error {
	body := unfence(raw)
	if body == "" {
		return fmt.Errorf("empty response body: %w", ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode response %q: %v: %w", abbreviate(body), err, ErrMalformedResponse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after JSON value in %q: %w", abbreviate(body), ErrMalformedResponse)
	}
	return nil
}

func unfence(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, codeFence); ok {
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		s = rest
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, codeFence)
	return strings.TrimSpace(s)
}

func abbreviate(s string) string {
	const max = 200
	if cut, ok := truncateRunes(s, max); ok {
		return cut + "..."
	}
	return s
}
