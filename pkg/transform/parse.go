package transform

import (
	"encoding/json"
	"strings"

	"github.com/XiaoConstantine/adapt-go/pkg/errors"
)

// ParseSpec extracts a rule spec from generation output. The collaborator is
// asked to answer with a JSON object holding a "rules" array; fenced code
// blocks and surrounding prose are tolerated.
func ParseSpec(raw string) (Spec, error) {
	body := ExtractJSON(raw)
	if body == "" {
		return Spec{}, errors.New(errors.InvalidResponse, "no JSON object found in generation output")
	}

	var spec Spec
	if err := json.Unmarshal([]byte(body), &spec); err != nil {
		return Spec{}, errors.Wrap(err, errors.InvalidResponse, "failed to parse transform spec")
	}

	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// ExtractJSON returns the first balanced top-level JSON object in the text,
// tolerating fenced code blocks and surrounding prose.
func ExtractJSON(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
