package interp

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadTypeMap(t *testing.T) {
	manifest := `
NewDeclarativeEnvironment: EnvironmentRecord
OrdinaryObjectCreate: Object
`
	tm, err := LoadTypeMap(strings.NewReader(manifest))
	if err != nil {
		t.Fatal(err)
	}
	want := TypeMap{
		"NewDeclarativeEnvironment": "EnvironmentRecord",
		"OrdinaryObjectCreate":      "Object",
	}
	if diff := cmp.Diff(want, tm); diff != "" {
		t.Errorf("Unexpected type map (-want +got):\n%s", diff)
	}
}

func TestLoadTypeMapInvalid(t *testing.T) {
	if _, err := LoadTypeMap(strings.NewReader("[not a map")); err == nil {
		t.Error("Malformed manifests must be rejected")
	}
}
