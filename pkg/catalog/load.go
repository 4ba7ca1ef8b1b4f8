package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/tables"
)

// DefaultAnnotationTypes are the human annotation bed files shipped with the data image.
var DefaultAnnotationTypes = []string{
	"Super_Enhancer_SEdbv2",
	"Super_Enhancer_SEAv3",
	"Super_Enhancer_dbSUPER",
	"Enhancer",
	"Common_SNP",
	"Risk_SNP",
	"eQTL",
	"TFBS",
	"eRNA",
	"RNA_Interaction",
	"CRISPR",
}

// DefaultExpressionSources are the mean-expression tables shipped with the data image.
var DefaultExpressionSources = []string{
	"cancer_TCGA",
	"cell_line_CCLE",
	"cell_line_ENCODE",
	"normal_tissue_GTEx",
	"primary_cell_ENCODE",
}

// CancerSource is the expression source whose header lists the TCGA cancer types.
const CancerSource = "cancer_TCGA"

// Options locates the on-disk catalogue.
type Options struct {
	Root         string
	ManifestPath string
}

// Load builds the registry from the data root. Every step that fails is
// logged and recorded in Warnings; the remaining parts still load.
func Load(opts Options, logger *zap.Logger) *Registry {
	r := NewRegistry()
	root := opts.Root

	if err := r.loadCategories(filepath.Join(root, "geneset", "json", "info_class.json")); err != nil {
		r.degrade(logger, "geneset categories", err)
	}

	for _, t := range DefaultAnnotationTypes {
		r.AddAnnotation(t, filepath.Join(root, "human", "human_"+t+".bed"))
	}

	if err := r.scanTRs(filepath.Join(root, "trapt", "TR_bed")); err != nil {
		r.degrade(logger, "TR beds", err)
	}

	r.SetGenePositions(filepath.Join(root, "human", "gene.bed"))
	r.SetTCGAMatrix(filepath.Join(root, "exp", "gene_expression_TCGA.feather"))

	for _, s := range DefaultExpressionSources {
		r.AddExpressionSource(s, filepath.Join(root, "exp", s+".csv.gz"))
	}

	if opts.ManifestPath != "" {
		if err := r.applyManifest(opts.ManifestPath); err != nil {
			r.degrade(logger, "catalogue manifest", err)
		}
	}

	if err := r.loadCancerTypes(); err != nil {
		r.degrade(logger, "cancer list", err)
	}

	logger.Info("Dataset registry loaded",
		zap.String("root", root),
		zap.Int("categories", len(r.categories)),
		zap.Int("annotation_types", len(r.annotations.entries)),
		zap.Int("tr_beds", r.TRCount()),
		zap.Int("expression_sources", len(r.expression.entries)),
		zap.Int("cancer_types", len(r.cancerTypes)),
		zap.Int("warnings", len(r.warnings)))

	return r
}

func (r *Registry) degrade(logger *zap.Logger, part string, err error) {
	msg := fmt.Sprintf("failed to load %s: %s", part, logging.TruncateError(err.Error()))
	r.warn(msg)
	logger.Warn("Dataset registry degraded",
		zap.String("part", part),
		zap.String("error", logging.TruncateError(err.Error())))
}

// loadCategories reads a JSON object of category name -> info, keeping key order.
func (r *Registry) loadCategories(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	categories, err := decodeOrderedObject(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	r.categories = append(r.categories, categories...)
	return nil
}

func decodeOrderedObject(rd io.Reader) ([]Category, error) {
	dec := json.NewDecoder(rd)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var out []Category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		out = append(out, Category{Name: key, Text: describe(value)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// describe extracts a category description. Entries are normally objects
// carrying a "text" field; plain strings are accepted as-is.
func describe(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if text, ok := val["text"].(string); ok {
			return text
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// scanTRs registers every file in dir keyed by its name up to the first ".".
// Entries are taken in the order the filesystem returns them, unsorted, and
// that order is the fuzzy match order.
func (r *Registry) scanTRs(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		key, _, _ := strings.Cut(name, ".")
		r.AddTR(key, filepath.Join(dir, name))
	}
	return nil
}

func (r *Registry) loadCancerTypes() error {
	path, ok := r.ExpressionSource(CancerSource)
	if !ok {
		return fmt.Errorf("expression source %s is not registered", CancerSource)
	}
	header, err := tables.ReadHeader(path, ',')
	if err != nil {
		return err
	}
	if len(header) > 0 {
		header = header[1:]
	}
	r.SetCancerTypes(header)
	return nil
}
