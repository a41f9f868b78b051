// Package conventional classifies commit messages against the Conventional Commits grammar.
package conventional

import (
	"regexp"
	"slices"
	"strings"
)

var (
	// headerRe matches "type(scope)!: subject" on the first line only.
	headerRe = regexp.MustCompile(`^([a-z]+)(\(([^)]+)\))?(!)?: (.+)$`)

	// footerRe matches a breaking change footer on any line of the message.
	footerRe = regexp.MustCompile(`(?m)^BREAKING[ -]CHANGE: `)

	allowedTypes = map[string]struct{}{
		"feat":     {},
		"fix":      {},
		"docs":     {},
		"style":    {},
		"refactor": {},
		"test":     {},
		"chore":    {},
		"perf":     {},
		"ci":       {},
		"build":    {},
		"revert":   {},
	}
)

// Result is the classification of a single commit message.
//
// A header that matches the grammar with a type outside the allow-list keeps its
// literal Type but has IsConventional set to false. A header that does not match
// the grammar at all has an empty Type.
type Result struct {
	IsConventional bool
	Type           string
	Scope          string
	HasBreaking    bool
}

// Parse classifies a raw commit message. It never fails.
func Parse(message string) Result {
	header, _, _ := strings.Cut(message, "\n")
	header = strings.TrimRight(header, "\r")
	footer := footerRe.MatchString(message)

	m := headerRe.FindStringSubmatch(header)
	if m == nil {
		return Result{HasBreaking: footer}
	}

	typ := m[1]
	return Result{
		IsConventional: IsAllowed(typ),
		Type:           typ,
		Scope:          m[3],
		HasBreaking:    m[4] == "!" || footer,
	}
}

// IsAllowed reports whether typ is a recognized conventional commit type.
func IsAllowed(typ string) bool {
	_, ok := allowedTypes[typ]
	return ok
}

// AllowedTypes returns the recognized conventional commit types in sorted order.
func AllowedTypes() []string {
	types := make([]string, 0, len(allowedTypes))
	for t := range allowedTypes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
