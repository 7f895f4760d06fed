package deliverable

// Default returns the built-in registry for the standard five-specialist
// workflow: guardrail assessment, impact analysis, workflow specification,
// agent specification, and compilation.
func Default() *Registry {
	specs := map[string]Spec{
		"Guardrail Agent": {
			Paths:       []string{"/guardrail_assessment.md"},
			Description: "Guardrail assessment document with security and policy validation",
			ContentRules: map[string][]string{
				"/guardrail_assessment.md": {
					"## Overall Assessment",
					"Status:",
					"## Contextual Guardrails",
				},
			},
			Stage:             "guardrail assessment",
			Prereqs:           []string{"/user_request.md"},
			PrereqDescription: "User request file for assessment",
		},
		"Impact Analysis Agent": {
			Paths:       []string{"/impact_assessment.md"},
			Description: "Impact assessment with file-by-file implementation plan",
			ContentRules: map[string][]string{
				"/impact_assessment.md": {
					"requirements.md",
					"constitution.md",
					"plan.md",
					"## File-by-File Implementation Plan",
					"## Constitutional Compliance Analysis",
				},
			},
			Stage:             "impact analysis",
			Prereqs:           []string{"/user_request.md", "/guardrail_assessment.md"},
			PrereqDescription: "User request and guardrail assessment for blueprint creation",
		},
		"Workflow Spec Agent": {
			Paths: []string{
				"/THE_SPEC/constitution.md",
				"/THE_SPEC/plan.md",
				"/THE_SPEC/requirements.md",
			},
			Description:       "Workflow-level specification files (constitution, plan, requirements)",
			Stage:             "workflow specification",
			Prereqs:           []string{"/impact_assessment.md"},
			PrereqDescription: "Impact assessment with implementation plan",
		},
		"Agent Spec Agent": {
			Paths:       []string{"/THE_CAST/"},
			Description: "Agent specification files in /THE_CAST/ directory",
			ContentRules: map[string][]string{
				// Every agent spec file needs these sections.
				"/THE_CAST/": {"## System Prompt", "## Tools"},
			},
			Stage:             "agent specification",
			Prereqs:           []string{"/impact_assessment.md"},
			PrereqDescription: "Impact assessment with implementation plan",
		},
		"Multi-Agent Compiler Agent": {
			Paths:       []string{"/definition.json"},
			Description: "Compiled workflow definition",
			Stage:       "workflow compilation",
			Prereqs: []string{
				"/THE_SPEC/requirements.md",
				"/THE_SPEC/plan.md",
				"/THE_SPEC/constitution.md",
				"/THE_CAST/",
			},
			PrereqDescription: "All specification files for compilation",
		},
	}

	owners := map[string]string{
		"/user_request.md":          OwnerOrchestrator,
		"/guardrail_assessment.md":  "Guardrail Agent",
		"/impact_assessment.md":     "Impact Analysis Agent",
		"/THE_SPEC/requirements.md": "Workflow Spec Agent",
		"/THE_SPEC/plan.md":         "Workflow Spec Agent",
		"/THE_SPEC/constitution.md": "Workflow Spec Agent",
		"/THE_CAST/":                "Agent Spec Agent",
		"/definition.json":          "Multi-Agent Compiler Agent",
	}

	return New(specs, owners)
}
