package postgres

import (
	"strings"
	"testing"
)

// Every read reachable without a role gate must carry the secret-tour filter;
// a secret tour reachable by guessing its id defeats the flag.
func TestPublicTourReadsExcludeSecret(t *testing.T) {
	public := map[string]string{
		"list":         listToursSQL,
		"find by id":   findTourSQL,
		"find by slug": findTourBySlugSQL,
	}
	for name, q := range public {
		if !strings.Contains(q, "NOT secret") {
			t.Errorf("%s query is missing the secret-tour filter:\n%s", name, q)
		}
	}

	if strings.Contains(findAnyTourSQL, "secret") {
		t.Error("internal by-id read must not filter on secret")
	}
}
