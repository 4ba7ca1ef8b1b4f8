package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest overrides or extends the built-in catalogue. Entries with a
// known name replace the built-in path; new names are appended.
//
//	annotations:
//	  - name: Enhancer
//	    path: /data/custom/enhancer.bed
//	expression_sources:
//	  - name: tumor_custom
//	    path: /data/custom/tumor.csv.gz
type Manifest struct {
	Annotations       []Entry `yaml:"annotations"`
	ExpressionSources []Entry `yaml:"expression_sources"`
	GenePositions     string  `yaml:"gene_positions"`
	TCGAMatrix        string  `yaml:"tcga_matrix"`
}

// ReadManifest parses a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for _, e := range append(m.Annotations, m.ExpressionSources...) {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("manifest entry needs both name and path: %+v", e)
		}
	}
	return &m, nil
}

func (r *Registry) applyManifest(path string) error {
	m, err := ReadManifest(path)
	if err != nil {
		return err
	}
	for _, e := range m.Annotations {
		r.AddAnnotation(e.Name, e.Path)
	}
	for _, e := range m.ExpressionSources {
		r.AddExpressionSource(e.Name, e.Path)
	}
	if m.GenePositions != "" {
		r.SetGenePositions(m.GenePositions)
	}
	if m.TCGAMatrix != "" {
		r.SetTCGAMatrix(m.TCGAMatrix)
	}
	return nil
}
