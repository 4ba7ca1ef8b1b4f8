// Package catalog is the dataset registry: the static mapping from logical
// dataset names to reference files on disk. A Registry is built once at
// startup and is read-only afterwards.
package catalog

import (
	"strings"
)

// Entry maps a logical dataset name to a file path.
type Entry struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Category is a geneset category and its description.
type Category struct {
	Name string
	Text string
}

// orderedEntries keeps insertion order, which is the order tools report
// and fuzzy-match in.
type orderedEntries struct {
	entries []Entry
	index   map[string]int
}

func (o *orderedEntries) put(name, path string) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[name]; ok {
		o.entries[i].Path = path
		return
	}
	o.index[name] = len(o.entries)
	o.entries = append(o.entries, Entry{Name: name, Path: path})
}

func (o *orderedEntries) get(name string) (string, bool) {
	i, ok := o.index[name]
	if !ok {
		return "", false
	}
	return o.entries[i].Path, true
}

func (o *orderedEntries) names() []string {
	names := make([]string, len(o.entries))
	for i, e := range o.entries {
		names[i] = e.Name
	}
	return names
}

// Registry holds every dataset the tools can resolve.
type Registry struct {
	categories   []Category
	annotations  orderedEntries
	trs          orderedEntries
	expression   orderedEntries
	genePosition string
	tcgaMatrix   string
	cancerTypes  []string
	warnings     []string
}

// NewRegistry returns an empty registry. Use Load for the on-disk catalogue;
// the Add/Set methods exist for assembling registries during startup and in tests.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddCategory appends a geneset category.
func (r *Registry) AddCategory(name, text string) {
	r.categories = append(r.categories, Category{Name: name, Text: text})
}

// AddAnnotation registers an annotation bed file for a biological type.
func (r *Registry) AddAnnotation(name, path string) {
	r.annotations.put(name, path)
}

// AddTR registers a TR ChIP-seq bed file.
func (r *Registry) AddTR(name, path string) {
	r.trs.put(name, path)
}

// AddExpressionSource registers a mean-expression table.
func (r *Registry) AddExpressionSource(name, path string) {
	r.expression.put(name, path)
}

// SetGenePositions sets the gene position bed file.
func (r *Registry) SetGenePositions(path string) {
	r.genePosition = path
}

// SetTCGAMatrix sets the multi-sample TCGA expression matrix.
func (r *Registry) SetTCGAMatrix(path string) {
	r.tcgaMatrix = path
}

// SetCancerTypes sets the cancer types accepted by the TCGA tool.
func (r *Registry) SetCancerTypes(types []string) {
	r.cancerTypes = types
}

func (r *Registry) warn(msg string) {
	r.warnings = append(r.warnings, msg)
}

// Warnings lists the parts of the catalogue that failed to load.
func (r *Registry) Warnings() []string {
	return r.warnings
}

// Categories returns the geneset categories in file order.
func (r *Registry) Categories() []Category {
	return r.categories
}

// Annotation resolves a biological type to its bed file.
func (r *Registry) Annotation(name string) (string, bool) {
	return r.annotations.get(name)
}

// AnnotationTypes lists the registered biological types.
func (r *Registry) AnnotationTypes() []string {
	return r.annotations.names()
}

// TR resolves an exact TR identifier (NAME@sample) to its bed file.
func (r *Registry) TR(name string) (string, bool) {
	return r.trs.get(name)
}

// TRCount returns the number of registered TR bed files.
func (r *Registry) TRCount() int {
	return len(r.trs.entries)
}

// ExpressionSource resolves a mean-expression data source.
func (r *Registry) ExpressionSource(name string) (string, bool) {
	return r.expression.get(name)
}

// ExpressionSources lists the registered mean-expression data sources.
func (r *Registry) ExpressionSources() []string {
	return r.expression.names()
}

// GenePositions returns the gene position bed file.
func (r *Registry) GenePositions() string {
	return r.genePosition
}

// TCGAMatrix returns the multi-sample TCGA expression matrix.
func (r *Registry) TCGAMatrix() string {
	return r.tcgaMatrix
}

// CancerTypes lists the TCGA cancer codes.
func (r *Registry) CancerTypes() []string {
	return r.cancerTypes
}

// HasCancerType reports whether code is a known TCGA cancer type.
func (r *Registry) HasCancerType(code string) bool {
	for _, c := range r.cancerTypes {
		if c == code {
			return true
		}
	}
	return false
}

// QualifierMarker separates a TR name from its sample qualifier.
const QualifierMarker = "@"

// MaxFuzzyMatches caps how many TRs a bare keyword expands to.
const MaxFuzzyMatches = 10

// FuzzyTR expands a bare TR keyword to qualified identifiers. Matching is a
// case-sensitive substring test restricted to keys that carry a qualifier;
// results follow registry order and are capped at MaxFuzzyMatches.
func (r *Registry) FuzzyTR(keyword string) []string {
	matches := make([]string, 0)
	for _, e := range r.trs.entries {
		if strings.Contains(e.Name, QualifierMarker) && strings.Contains(e.Name, keyword) {
			matches = append(matches, e.Name)
			if len(matches) == MaxFuzzyMatches {
				break
			}
		}
	}
	return matches
}

// SearchTR returns every TR whose name contains keyword, ignoring case, in
// registry order.
func (r *Registry) SearchTR(keyword string) []Entry {
	needle := strings.ToLower(keyword)
	matches := make([]Entry, 0)
	for _, e := range r.trs.entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			matches = append(matches, e)
		}
	}
	return matches
}
