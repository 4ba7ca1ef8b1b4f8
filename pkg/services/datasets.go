package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-biotools/pkg/catalog"
	"github.com/ekaya-inc/ekaya-biotools/pkg/identifiers"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/tables"
)

// Digest tags for operations that do not digest by a request argument.
const (
	trBedTag        = "get_tr_bed"
	genePositionTag = "get_gene_position"
)

// MaxReportedIDs caps how many identifiers an error message names.
const MaxReportedIDs = 10

// copyConcurrency bounds parallel TR bed copies.
const copyConcurrency = 8

// trSource is a resolved TR identifier and its registered bed file.
type trSource struct {
	name string
	path string
}

// FuzzyMatch records how a bare TR keyword was expanded.
type FuzzyMatch struct {
	Keyword string
	Matches []string
}

// TRBedResult is the outcome of a TR bed retrieval.
type TRBedResult struct {
	Dir          string
	FuzzyMatches []FuzzyMatch
	Files        []string
}

// DatasetService resolves dataset requests against the registry and
// materializes filtered results.
type DatasetService interface {
	GenesetCategories(ctx context.Context) ([]catalog.Category, error)
	AnnotationBed(ctx context.Context, biologicalType string) (string, error)
	TRBeds(ctx context.Context, trs any) (*TRBedResult, error)
	SearchTR(ctx context.Context, keyword string) ([]catalog.Entry, error)
	GenePosition(ctx context.Context, genes any) (string, error)
	TCGAExpression(ctx context.Context, cancer string, genes any) (string, error)
	MeanExpression(ctx context.Context, dataSource string, genes any) (string, error)
}

type datasetService struct {
	registry     *catalog.Registry
	materializer *tables.Materializer
	logger       *zap.Logger
}

// NewDatasetService creates a DatasetService over registry, writing
// results through materializer.
func NewDatasetService(registry *catalog.Registry, materializer *tables.Materializer, logger *zap.Logger) DatasetService {
	return &datasetService{
		registry:     registry,
		materializer: materializer,
		logger:       logger.Named("dataset-service"),
	}
}

var _ DatasetService = (*datasetService)(nil)

func (s *datasetService) GenesetCategories(ctx context.Context) ([]catalog.Category, error) {
	categories := s.registry.Categories()
	if len(categories) == 0 {
		return nil, newToolError(CodeNotFound, apperrors.ErrNotFound, "No geneset categories available")
	}
	return categories, nil
}

func (s *datasetService) AnnotationBed(ctx context.Context, biologicalType string) (string, error) {
	path, ok := s.registry.Annotation(biologicalType)
	if !ok {
		return "", newToolError(CodeNotFound, apperrors.ErrNotFound,
			"Biological type '%s' not found. Available: %s",
			biologicalType, availableList(s.registry.AnnotationTypes()))
	}
	return path, nil
}

func (s *datasetService) TRBeds(ctx context.Context, trs any) (*TRBedResult, error) {
	ids, err := identifiers.ParseTRs(trs)
	if err != nil {
		return nil, fromValidation(err)
	}

	subdir := "md5_" + tables.Digest(trBedTag, ids)
	dir, err := s.materializer.MkdirAll(subdir)
	if err != nil {
		return nil, ioFailure(CodeWriteFailed, "Error creating temporary directory", err)
	}

	result := &TRBedResult{Dir: dir}
	var sources []trSource
	var missing []string
	for _, id := range ids {
		if strings.Contains(id, catalog.QualifierMarker) {
			path, ok := s.registry.TR(id)
			if !ok {
				missing = append(missing, id)
				continue
			}
			sources = append(sources, trSource{name: id, path: path})
			continue
		}

		matches := s.registry.FuzzyTR(id)
		if len(matches) == 0 {
			missing = append(missing, id)
			continue
		}
		result.FuzzyMatches = append(result.FuzzyMatches, FuzzyMatch{Keyword: id, Matches: matches})
		for _, m := range matches {
			path, _ := s.registry.TR(m)
			sources = append(sources, trSource{name: m, path: path})
		}
	}

	files, failed := s.copyAll(ctx, subdir, sources)
	missing = append(missing, failed...)

	if len(missing) > 0 {
		s.logger.Debug("TR bed request incomplete",
			zap.Int("requested", len(ids)),
			zap.Int("missing", len(missing)))
		return nil, newToolError(CodeNotFound, apperrors.ErrNotFound,
			"TRs not found or failed: %s", summarize(missing))
	}
	if len(files) == 0 {
		return nil, newToolError(CodeNotFound, apperrors.ErrNotFound, "No BED files found")
	}

	result.Files = files
	return result, nil
}

// copyAll copies each source into subdir. Results keep
// source order; a failed copy is reported per identifier and does not stop
// the others.
func (s *datasetService) copyAll(ctx context.Context, subdir string, sources []trSource) ([]string, []string) {
	copied := make([]string, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			copied[i], errs[i] = s.materializer.CopyInto(subdir, src.path)
			return nil
		})
	}
	_ = g.Wait()

	var files, failed []string
	for i, src := range sources {
		if errs[i] != nil {
			failed = append(failed, fmt.Sprintf("%s (copy failed: %s)", src.name, logging.TruncateError(errs[i].Error())))
			continue
		}
		files = append(files, copied[i])
	}
	return files, failed
}

func (s *datasetService) SearchTR(ctx context.Context, keyword string) ([]catalog.Entry, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, newToolError(CodeInvalidInput, apperrors.ErrInvalidInput, "Keyword cannot be empty")
	}
	return s.registry.SearchTR(keyword), nil
}

func (s *datasetService) GenePosition(ctx context.Context, genes any) (string, error) {
	sel, err := identifiers.ParseGenes(genes)
	if err != nil {
		return "", fromValidation(err)
	}

	bed, err := tables.ReadFile(s.registry.GenePositions(), tables.Bed)
	if err != nil {
		return "", ioFailure(CodeReadFailed, "Error reading gene bed file", err)
	}

	if !sel.All {
		bed = bed.FilterRows(tables.GeneNameColumn, tables.KeySet(sel.IDs))
		if bed.Empty() {
			return "", newToolError(CodeEmptyResult, apperrors.ErrEmptyResult,
				"No position information found for genes: %s", summarize(sel.IDs))
		}
	}

	name := fmt.Sprintf("gene_position_md5_%s.bed", tables.Digest(genePositionTag, sel.Keys()))
	path, err := s.materializer.WriteTable(name, bed, '\t')
	if err != nil {
		return "", ioFailure(CodeWriteFailed, "Error writing gene position file", err)
	}
	s.logger.Debug("Gene positions materialized", zap.String("path", path), zap.Int("rows", bed.Len()))
	return path, nil
}

func (s *datasetService) TCGAExpression(ctx context.Context, cancer string, genes any) (string, error) {
	if !s.registry.HasCancerType(cancer) {
		return "", newToolError(CodeNotFound, apperrors.ErrNotFound,
			"Cancer type '%s' not found. Available: %s", cancer, strings.Join(s.registry.CancerTypes(), ", "))
	}

	sel, err := identifiers.ParseGenes(genes)
	if err != nil {
		return "", fromValidation(err)
	}

	exp, err := tables.ReadFile(s.registry.TCGAMatrix(), tables.CSV)
	if err != nil {
		return "", ioFailure(CodeReadFailed, "Error reading expression data", err)
	}

	// Column 0 is the gene key. ReadFeather moves a pandas index there.
	if !sel.All {
		exp = exp.FilterRows(0, tables.KeySet(sel.IDs))
		if exp.Empty() {
			return "", newToolError(CodeEmptyResult, apperrors.ErrEmptyResult,
				"No expression data found for specified genes in TCGA database")
		}
	}

	exp = exp.SelectColumns(0, func(name string) bool { return strings.HasPrefix(name, cancer) })
	if exp.Empty() || len(exp.Header) < 2 {
		return "", newToolError(CodeEmptyResult, apperrors.ErrEmptyResult,
			"No expression data found for cancer type '%s'", cancer)
	}

	name := fmt.Sprintf("TCGA_%s_exp_md5_%s.csv", cancer, tables.Digest(cancer, sel.Keys()))
	path, err := s.materializer.WriteTable(name, exp, ',')
	if err != nil {
		return "", ioFailure(CodeWriteFailed, "Error writing expression file", err)
	}
	return path, nil
}

func (s *datasetService) MeanExpression(ctx context.Context, dataSource string, genes any) (string, error) {
	source, ok := s.registry.ExpressionSource(dataSource)
	if !ok {
		return "", newToolError(CodeNotFound, apperrors.ErrNotFound,
			"Data source '%s' not found. Available: %s", dataSource, strings.Join(s.registry.ExpressionSources(), ", "))
	}

	sel, err := identifiers.ParseGenes(genes)
	if err != nil {
		return "", fromValidation(err)
	}

	exp, err := tables.ReadFile(source, tables.CSV)
	if err != nil {
		return "", ioFailure(CodeReadFailed, "Error reading expression file", err)
	}

	if !sel.All {
		exp = exp.FilterRows(0, tables.KeySet(sel.IDs))
		if exp.Empty() {
			return "", newToolError(CodeEmptyResult, apperrors.ErrEmptyResult,
				"No expression data found for specified genes in %s", dataSource)
		}
	}

	name := fmt.Sprintf("exp_genes_md5_%s.csv", tables.Digest(dataSource, sel.Keys()))
	path, err := s.materializer.WriteTable(name, exp, ',')
	if err != nil {
		return "", ioFailure(CodeWriteFailed, "Error writing expression file", err)
	}
	return path, nil
}

// summarize joins the first MaxReportedIDs identifiers and counts the rest.
func summarize(ids []string) string {
	if len(ids) <= MaxReportedIDs {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(ids[:MaxReportedIDs], ", "), len(ids)-MaxReportedIDs)
}

func availableList(names []string) string {
	if len(names) == 0 {
		return "None available"
	}
	return strings.Join(names, ", ")
}
