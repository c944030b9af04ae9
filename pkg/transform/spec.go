// Package transform represents discovered strategy implementations as data.
// A Spec is an ordered list of text rules interpreted by a fixed evaluator;
// no generated code is ever compiled or executed.
package transform

import (
	"context"
	"strings"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// Op names the operations a rule may perform.
type Op string

const (
	OpPrepend      Op = "prepend"
	OpAppend       Op = "append"
	OpInsertBefore Op = "insert-before"
	OpInsertAfter  Op = "insert-after"
	OpReplace      Op = "replace"
)

// maxRules bounds how large a synthesized spec may grow.
const maxRules = 16

// Rule is one text operation. Match anchors the insert/replace operations;
// Text is the payload and may contain named slots.
type Rule struct {
	Op    Op     `json:"op"`
	Match string `json:"match,omitempty"`
	Text  string `json:"text"`
}

// Spec is an ordered transform description with named slots. Recognized
// slots: {{input}}, {{project}}, {{component}}, {{requirements}}.
type Spec struct {
	Rules []Rule `json:"rules"`
}

// Validate checks the spec against the evaluator's constraints.
func (s Spec) Validate() error {
	if len(s.Rules) == 0 {
		return errors.New(errors.ValidationFailed, "transform spec has no rules")
	}
	if len(s.Rules) > maxRules {
		return errors.WithFields(
			errors.New(errors.ValidationFailed, "transform spec has too many rules"),
			errors.Fields{"rules": len(s.Rules), "max": maxRules},
		)
	}
	for i, r := range s.Rules {
		switch r.Op {
		case OpPrepend, OpAppend:
			if r.Text == "" {
				return ruleError(i, "rule has no text")
			}
		case OpInsertBefore, OpInsertAfter, OpReplace:
			if r.Match == "" {
				return ruleError(i, "rule has no match anchor")
			}
		default:
			return ruleError(i, "unknown rule op")
		}
	}
	return nil
}

func ruleError(i int, msg string) error {
	return errors.WithFields(
		errors.New(errors.ValidationFailed, msg),
		errors.Fields{"rule": i},
	)
}

// Transform wraps the spec as a core.Transform. An invalid spec degrades to
// the identity transform with a warning; it never fails the run.
func (s Spec) Transform() core.Transform {
	return core.TransformFunc(func(ctx context.Context, input string, tc core.Context) (string, error) {
		if err := s.Validate(); err != nil {
			logging.GetLogger().Warn(ctx, "Invalid transform spec, falling back to identity: %v", err)
			return input, nil
		}
		return s.apply(input, tc), nil
	})
}

func (s Spec) apply(input string, tc core.Context) string {
	out := input
	for _, r := range s.Rules {
		text := expandSlots(r.Text, input, tc)
		switch r.Op {
		case OpPrepend:
			out = text + out
		case OpAppend:
			out = out + text
		case OpInsertBefore:
			if idx := strings.Index(out, r.Match); idx >= 0 {
				out = out[:idx] + text + out[idx:]
			}
		case OpInsertAfter:
			if idx := strings.Index(out, r.Match); idx >= 0 {
				end := idx + len(r.Match)
				out = out[:end] + text + out[end:]
			}
		case OpReplace:
			out = strings.ReplaceAll(out, r.Match, text)
		}
	}
	return out
}

// expandSlots substitutes named slots in a rule payload. {{input}} expands
// to the original input, not the partially transformed text.
func expandSlots(text, input string, tc core.Context) string {
	replacer := strings.NewReplacer(
		"{{input}}", input,
		"{{project}}", tc.ProjectContext,
		"{{component}}", tc.ComponentType,
		"{{requirements}}", strings.Join(tc.RequirementTypes, ", "),
	)
	return replacer.Replace(text)
}
