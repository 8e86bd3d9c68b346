// Package exercise holds the static exercise content that grading
// sessions are built from.
package exercise

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultInitialQuery pre-populates the editor when an exercise does
// not provide its own starting text.
const DefaultInitialQuery = "SELECT 'your query here';"

var ErrExerciseNotFound = errors.New("exercise not found")

// Definition is one exercise. It is read-only input to the grader.
type Definition struct {
	ID             string `yaml:"id" json:"id"`
	Title          string `yaml:"title" json:"title"`
	Task           string `yaml:"task" json:"task"`
	Schema         string `yaml:"schema" json:"schema"`
	Seed           string `yaml:"seed" json:"seed"`
	ReferenceQuery string `yaml:"reference_query" json:"-"`
	InitialQuery   string `yaml:"initial_query" json:"initial_query"`
}

// Validate checks that every required field is present.
func (d Definition) Validate() error {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"id", d.ID},
		{"title", d.Title},
		{"task", d.Task},
		{"schema", d.Schema},
		{"reference_query", d.ReferenceQuery},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("exercise %q: missing %s", d.ID, strings.Join(missing, ", "))
	}

	return nil
}

func (d Definition) withDefaults() Definition {
	if strings.TrimSpace(d.InitialQuery) == "" {
		d.InitialQuery = DefaultInitialQuery
	}
	return d
}
