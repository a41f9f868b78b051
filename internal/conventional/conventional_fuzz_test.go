package conventional

import (
	"strings"
	"testing"
)

// FuzzParse checks that Parse never panics and that its results stay self-consistent.
func FuzzParse(f *testing.F) {
	seeds := []string{
		"feat: add login",
		"fix(parser)!: handle pipes",
		"wibble: subject",
		"chore: cleanup\n\nBREAKING CHANGE: removed X",
		"Merge branch 'main' into feature",
		"",
		"feat(: broken",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, message string) {
		got := Parse(message)
		if got.IsConventional && !IsAllowed(got.Type) {
			t.Fatalf("conventional result with unknown type %q", got.Type)
		}
		if got.Type == "" && (got.IsConventional || got.Scope != "") {
			t.Fatalf("grammar miss reported header fields: %+v", got)
		}
		if got.Type != "" && !strings.HasPrefix(message, got.Type) {
			t.Fatalf("type %q not taken from the header of %q", got.Type, message)
		}
	})
}
