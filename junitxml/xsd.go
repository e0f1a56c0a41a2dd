package junitxml

import (
	"embed"
	"fmt"
	"io"
)

//go:embed data/*.xsd
var schemaFS embed.FS

// GetXSD returns a readable stream over the bundled schema used to validate
// reports produced for a ci-environment. Callers own closing the stream.
// Values outside 'asc' and 'mk8s' are an error.
func GetXSD(ciEnvironment string) (io.ReadCloser, error) {
	var name string
	switch ciEnvironment {
	case "asc":
		name = "data/molecule_junit.xsd"
	case "mk8s":
		name = "data/mk8s_junit.xsd"
	default:
		return nil, fmt.Errorf("unknown ci-environment %q", ciEnvironment)
	}
	f, err := schemaFS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundled schema %q: %w", name, err)
	}
	return f, nil
}
