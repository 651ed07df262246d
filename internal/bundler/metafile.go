package bundler

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Metafile represents the esbuild metafile JSON structure.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput represents an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

// MetafileImport represents an import in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput represents an output file in the metafile.
type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib is how many bytes an input contributed to an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Report summarizes what went into a bundle.
type Report struct {
	TotalBytes int
	Inputs     []InputSize
	Externals  []string
}

// InputSize is one input's share of the bundle.
type InputSize struct {
	Path          string
	BytesInOutput int
}

// Analyze parses an esbuild metafile. Inputs are sorted by contribution,
// largest first.
func Analyze(metafile string) (*Report, error) {
	var meta Metafile
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}

	report := &Report{}
	contrib := make(map[string]int)
	externals := make(map[string]bool)

	for _, out := range meta.Outputs {
		report.TotalBytes += out.Bytes
		for path, in := range out.Inputs {
			contrib[path] += in.BytesInOutput
		}
		for _, imp := range out.Imports {
			if imp.External {
				externals[imp.Path] = true
			}
		}
	}
	for _, in := range meta.Inputs {
		for _, imp := range in.Imports {
			if imp.External {
				externals[imp.Path] = true
			}
		}
	}

	for path, n := range contrib {
		report.Inputs = append(report.Inputs, InputSize{Path: path, BytesInOutput: n})
	}
	sort.Slice(report.Inputs, func(i, j int) bool {
		if report.Inputs[i].BytesInOutput != report.Inputs[j].BytesInOutput {
			return report.Inputs[i].BytesInOutput > report.Inputs[j].BytesInOutput
		}
		return report.Inputs[i].Path < report.Inputs[j].Path
	})

	for path := range externals {
		report.Externals = append(report.Externals, path)
	}
	sort.Strings(report.Externals)

	return report, nil
}
