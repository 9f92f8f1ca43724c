package synth

import (
	"fmt"
	"regexp"
	"strings"

	"go-reporting-orchestrator/internal/model"
)

// pipPackageImports maps declared pip package names to the module names they
// are imported under.
var pipPackageImports = map[string]string{
	"snowflake-snowpark-python": "snowflake",
	"scikit-learn":              "sklearn",
}

// pythonStdlib is the subset of the standard library generated analyses are
// allowed to reach for without declaring anything.
var pythonStdlib = map[string]bool{
	"json": true, "math": true, "datetime": true, "typing": true,
	"statistics": true, "itertools": true, "functools": true, "re": true,
	"collections": true, "decimal": true, "random": true,
}

var importRe = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Check runs the static checks a script must pass before deployment. A failed
// check is a code defect: it consumes an attempt and feeds back into the next
// synthesis, but without a remote round-trip.
func Check(source string, sc model.SchemaContext, packages []string) *model.Failure {
	if strings.TrimSpace(source) == "" {
		return model.NewFailure(model.FailureCodeDefect, "generated response contained no code")
	}
	if !strings.Contains(source, "def main(session") {
		return model.NewFailure(model.FailureCodeDefect,
			"generated code does not define the required entry point main(session)")
	}
	if strings.Contains(source, "__main__") {
		return model.NewFailure(model.FailureCodeDefect,
			"generated code must not include an if __name__ == '__main__' block")
	}
	if f := checkImports(source, packages); f != nil {
		return f
	}
	if f := checkColumnCase(source, sc); f != nil {
		return f
	}
	return nil
}

// checkImports rejects imports outside the declared dependency set. An
// undeclared import would fail remotely as a missing package anyway; catching
// it here saves the round-trip.
func checkImports(source string, packages []string) *model.Failure {
	allowed := make(map[string]bool, len(packages)+len(pythonStdlib))
	for mod := range pythonStdlib {
		allowed[mod] = true
	}
	for _, pkg := range packages {
		if mod, ok := pipPackageImports[pkg]; ok {
			allowed[mod] = true
		} else {
			allowed[pkg] = true
		}
	}

	for _, m := range importRe.FindAllStringSubmatch(source, -1) {
		if !allowed[m[1]] {
			return model.NewFailure(model.FailureCodeDefect,
				fmt.Sprintf("generated code imports %q which is not in the declared package set", m[1]))
		}
	}
	return nil
}

var quotedRe = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']`)

// checkColumnCase flags schema column references that are not lowercase.
// Case-mismatched keys are a documented failure mode: the script normalizes
// df.columns to lowercase, so any other casing raises a KeyError at runtime.
func checkColumnCase(source string, sc model.SchemaContext) *model.Failure {
	known := make(map[string]bool)
	for _, t := range sc.Tables {
		for _, c := range t.Columns {
			known[strings.ToLower(c.Name)] = true
		}
	}

	for _, m := range quotedRe.FindAllStringSubmatch(source, -1) {
		ref := m[1]
		lower := strings.ToLower(ref)
		if known[lower] && ref != lower {
			return model.NewFailure(model.FailureCodeDefect,
				fmt.Sprintf("column %q referenced with non-lowercase casing; columns are normalized to lowercase", ref))
		}
	}
	return nil
}
