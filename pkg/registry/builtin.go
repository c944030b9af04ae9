package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// minUsefulCompletion is the shortest generation output treated as a real
// rewrite. Anything shorter is a no-op and the original input is kept.
const minUsefulCompletion = 20

// Builtin returns the built-in strategy set. Strategies that rewrite text
// suspend on the generation collaborator; they degrade to no-ops when the
// collaborator fails or returns unusable output.
func Builtin(llm core.LLM) []core.StrategyDefinition {
	return []core.StrategyDefinition{
		{
			Name:        "clarify-intent",
			Description: "Rewrite the prompt so the desired outcome is stated explicitly",
			Category:    core.CategoryPrompt,
			Transform: rewriteTransform(llm,
				"Rewrite the following so the desired outcome is stated explicitly and unambiguously. Keep all existing requirements.\n\n%s\n\nRewritten:"),
		},
		{
			Name:        "add-concrete-examples",
			Description: "Augment the prompt with concrete examples of the expected result",
			Category:    core.CategoryPrompt,
			Transform: rewriteTransform(llm,
				"Augment the following with one or two concrete examples of the expected result, keeping the original text intact.\n\n%s\n\nAugmented:"),
		},
		{
			Name:        "enrich-context",
			Description: "Inject project and component context ahead of the input",
			Category:    core.CategoryContext,
			Transform: core.TransformFunc(func(_ context.Context, input string, tc core.Context) (string, error) {
				var b strings.Builder
				if tc.ProjectContext != "" {
					fmt.Fprintf(&b, "Project context: %s\n", tc.ProjectContext)
				}
				if tc.ComponentType != "" {
					fmt.Fprintf(&b, "Component type: %s\n", tc.ComponentType)
				}
				if len(tc.RequirementTypes) > 0 {
					fmt.Fprintf(&b, "Requirements: %s\n", strings.Join(tc.RequirementTypes, ", "))
				}
				if b.Len() == 0 {
					return input, nil
				}
				b.WriteString("\n")
				b.WriteString(input)
				return b.String(), nil
			}),
		},
		{
			Name:        "constrain-scope",
			Description: "Narrow the input to its stated requirements, dropping speculation",
			Category:    core.CategoryContext,
			Transform: rewriteTransform(llm,
				"Trim the following so it covers exactly its stated requirements and nothing speculative. Preserve wording where possible.\n\n%s\n\nTrimmed:"),
		},
		{
			Name:        "stepwise-reasoning",
			Description: "Instruct the model to work through the task step by step",
			Category:    core.CategoryModel,
			Transform: core.TransformFunc(func(_ context.Context, input string, _ core.Context) (string, error) {
				return "Work through this step by step, checking each requirement before moving on.\n\n" + input, nil
			}),
		},
		{
			Name:        "tighten-output-format",
			Description: "Append explicit output-format constraints",
			Category:    core.CategoryConfig,
			Transform: core.TransformFunc(func(_ context.Context, input string, _ core.Context) (string, error) {
				return input + "\n\nReturn only the final artifact, with no commentary or surrounding explanation.", nil
			}),
		},
	}
}

// RegisterBuiltin wires the built-in set into a registry.
func RegisterBuiltin(r *Registry, llm core.LLM) {
	for _, def := range Builtin(llm) {
		r.MustRegister(def)
	}
}

// rewriteTransform builds a transform that asks the generation collaborator
// to rewrite the input using the given prompt template. Collaborator
// failures and empty or too-short completions leave the input unchanged.
func rewriteTransform(llm core.LLM, template string) core.Transform {
	return core.TransformFunc(func(ctx context.Context, input string, _ core.Context) (string, error) {
		if llm == nil {
			return input, nil
		}

		resp, err := llm.Generate(ctx, fmt.Sprintf(template, input))
		if err != nil {
			logging.GetLogger().Debug(ctx, "Rewrite generation failed, keeping input: %v", err)
			return input, nil
		}

		content := strings.TrimSpace(resp.Content)
		if len(content) < minUsefulCompletion {
			return input, nil
		}
		return content, nil
	})
}
