package interp

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// TypeMap declares the return-type refinement of known functions: the
// return transfer narrows the callee's returned location to the
// declared type.
type TypeMap map[string]string

// LoadTypeMap reads a type map from a YAML manifest of the form
// `function-name: TypeName`.
func LoadTypeMap(r io.Reader) (TypeMap, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading type map")
	}
	tm := TypeMap{}
	if err := yaml.Unmarshal(raw, &tm); err != nil {
		return nil, errors.Wrap(err, "parsing type map")
	}
	return tm, nil
}

// LoadTypeMapFile reads a type map manifest from disk.
func LoadTypeMapFile(path string) (TypeMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening type map %s", path)
	}
	defer f.Close()
	return LoadTypeMap(f)
}
