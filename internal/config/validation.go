package config

import (
	"fmt"
	"sort"
	"strings"
)

// Problem is a single configuration error scoped to a config section.
type Problem struct {
	Section string
	Message string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Problems []Problem
}

func (e *ValidationErrors) add(section, message string) {
	e.Problems = append(e.Problems, Problem{Section: section, Message: message})
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

// Error formats all validation errors grouped by section.
func (e *ValidationErrors) Error() string {
	bySection := make(map[string][]string)
	for _, p := range e.Problems {
		bySection[p.Section] = append(bySection[p.Section], p.Message)
	}

	sections := make([]string, 0, len(bySection))
	for s := range bySection {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, s := range sections {
		sb.WriteString(fmt.Sprintf("\n%s:\n", s))
		for _, msg := range bySection[s] {
			sb.WriteString(fmt.Sprintf("  - %s\n", msg))
		}
	}
	return sb.String()
}
