package core

// Context describes where an artifact came from. All fields are optional;
// an unset field acts as a wildcard and matches everything. Contexts are
// used only for filtering and weighting outcomes, never for dispatch.
type Context struct {
	// ProjectContext is free text identifying the project or codebase.
	ProjectContext string `json:"project_context,omitempty" yaml:"project_context,omitempty"`

	// RequirementTypes names the requirement categories the artifact
	// addresses (e.g. "accessibility", "performance").
	RequirementTypes []string `json:"requirement_types,omitempty" yaml:"requirement_types,omitempty"`

	// ComponentType names the kind of component being produced
	// (e.g. "button", "form").
	ComponentType string `json:"component_type,omitempty" yaml:"component_type,omitempty"`
}

// IsWildcard reports whether the context has no constraints at all.
func (c Context) IsWildcard() bool {
	return c.ProjectContext == "" && c.ComponentType == "" && len(c.RequirementTypes) == 0
}

// Matches reports whether an outcome recorded under other is relevant to
// queries made under c. Each field only constrains the match when it is set
// on both sides: projects and component types must be equal, and requirement
// sets must share at least one element.
func (c Context) Matches(other Context) bool {
	if c.ProjectContext != "" && other.ProjectContext != "" && c.ProjectContext != other.ProjectContext {
		return false
	}
	if c.ComponentType != "" && other.ComponentType != "" && c.ComponentType != other.ComponentType {
		return false
	}
	if len(c.RequirementTypes) > 0 && len(other.RequirementTypes) > 0 {
		if !anyOverlap(c.RequirementTypes, other.RequirementTypes) {
			return false
		}
	}
	return true
}

func anyOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
