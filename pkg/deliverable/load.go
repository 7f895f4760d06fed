package deliverable

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk YAML shape of a registry.
type registryFile struct {
	Producers map[string]Spec   `yaml:"producers"`
	Ownership map[string]string `yaml:"ownership"`
}

// Load reads a registry from a YAML file. Environment variables referenced
// as ${VAR_NAME} are interpolated before parsing, so descriptions and
// paths can carry deployment-specific values.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML data.
func Parse(data []byte) (*Registry, error) {
	interpolated := interpolateEnvVars(string(data))

	var file registryFile
	if err := yaml.Unmarshal([]byte(interpolated), &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(file.Producers) == 0 {
		return nil, fmt.Errorf("parse registry: no producers defined")
	}

	for name, spec := range file.Producers {
		if len(spec.Paths) == 0 {
			return nil, fmt.Errorf("parse registry: producer %q has no required paths", name)
		}
		for rulePath := range spec.ContentRules {
			if !pathRequired(spec.Paths, rulePath) {
				return nil, fmt.Errorf("parse registry: producer %q has a content rule for %q, which is not a required path", name, rulePath)
			}
		}
	}

	return New(file.Producers, file.Ownership), nil
}

func pathRequired(paths []string, rulePath string) bool {
	for _, p := range paths {
		if p == rulePath {
			return true
		}
	}
	return false
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment
// variable values, leaving unset references unresolved.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}
