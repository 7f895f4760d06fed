// Package workflow runs multi-stage producer pipelines defined in YAML,
// gating each stage behind prerequisite checks and verification-driven
// retries.
package workflow

// Definition describes a complete workflow: an ordered list of producer
// stages plus the retry budget they share.
type Definition struct {
	APIVersion  string     `yaml:"apiVersion" json:"apiVersion"`
	Kind        string     `yaml:"kind" json:"kind"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Budget      int        `yaml:"budget" json:"budget"`
	Params      []ParamDef `yaml:"params" json:"params"`
	Stages      []Stage    `yaml:"stages" json:"stages"`
}

// Stage is one producer invocation within a workflow.
type Stage struct {
	Producer    string `yaml:"producer" json:"producer"`
	Instruction string `yaml:"instruction" json:"instruction"`
	// SkipPrecheck bypasses the prerequisite gate for this stage.
	SkipPrecheck bool `yaml:"skip_precheck" json:"skip_precheck"`
}

// ParamDef defines a runtime parameter for instruction templating.
type ParamDef struct {
	Name        string `yaml:"name" json:"name"`
	Default     any    `yaml:"default" json:"default"`
	Description string `yaml:"description" json:"description"`
}
