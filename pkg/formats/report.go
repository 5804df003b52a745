package formats

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-strips/pkg/strip"
)

// Report is the YAML form of a compression result.
type Report struct {
	Source string        `yaml:"source,omitempty"`
	Stats  strip.Stats   `yaml:"stats"`
	Strips []strip.Strip `yaml:"strips,omitempty,flow"`
}

// NewReport builds a report. Strips are only included when withStrips is set.
func NewReport(source string, res strip.Result, withStrips bool) *Report {
	r := &Report{Source: source, Stats: res.Stats}
	if withStrips {
		r.Strips = res.Strips
	}
	return r
}

// MarshalReport encodes the report as YAML.
func (r *Report) MarshalReport() ([]byte, error) {
	return yaml.Marshal(r)
}

// ParseReport decodes a YAML report.
func ParseReport(data []byte) (*Report, error) {
	r := &Report{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveTo writes the report to path, creating parent directories.
func (r *Report) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := r.MarshalReport()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
