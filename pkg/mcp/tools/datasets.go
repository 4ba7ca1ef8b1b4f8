package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-biotools/pkg/identifiers"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

// maxListedResults caps how many lines search_tr and get_tr_bed print.
const maxListedResults = 20

const genesArgDescription = `Gene names. Can be either:
    - Gene name list (e.g., ['TP53'])
    - CSV file containing a list of gene names
    - The string "all" to return all genes`

func registerGenesetCategoryListTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"geneset_category_list",
		mcp.WithDescription(`List all available geneset categories and their descriptions.

Returns:
    A string containing all geneset categories and their descriptions.`),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categories, err := deps.Datasets.GenesetCategories(ctx)
		if err != nil {
			return handleError(deps, "geneset_category_list", err)
		}
		lines := make([]string, len(categories))
		for i, c := range categories {
			lines[i] = fmt.Sprintf("%s: %s", c.Name, c.Text)
		}
		return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
	})
}

func registerAnnotationBedTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"get_annotation_bed",
		mcp.WithDescription(fmt.Sprintf(`Get annotation bed file for a given biological type from the local database (hg38).

Args:
    biological_type: Biological types in local database (must be one of: %s)

Returns:
    The path to the annotation bed file.`, strings.Join(deps.Registry.AnnotationTypes(), ", "))),
		mcp.WithString(
			"biological_type",
			mcp.Required(),
			mcp.Description("Biological type in the local database"),
			mcp.Enum(deps.Registry.AnnotationTypes()...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		biologicalType, _, err := stringArgument(req, "biological_type")
		if err != nil {
			return NewErrorResult(services.CodeInvalidInput, "Biological type must be a string, "+err.Error()), nil
		}
		path, err := deps.Datasets.AnnotationBed(ctx, biologicalType)
		if err != nil {
			return handleError(deps, "get_annotation_bed", err)
		}
		return mcp.NewToolResultText(path), nil
	})
}

func registerTRBedTool(s *server.MCPServer, deps *Deps) {
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"trs": {
				"anyOf": [
					{"type": "array", "items": {"type": "string"}},
					{"type": "string"}
				],
				"description": "A list of TR names from TRAPT prediction (e.g., ['GATA4@Sample_03_0174', 'TBX5@Sample_03_0173']) or a path to a CSV file containing TR names (one name per line)"
			}
		},
		"required": ["trs"]
	}`)
	tool := readOnly(mcp.NewToolWithRawSchema("get_tr_bed", `Get TR (including transcription factors, transcription co-factors, and chromatin regulators)
binding region ChIP-seq bed files for a given list of TRs from the local database (hg38).

Note: The bed files provided are derived from ChIP-seq data.
      TR names can be obtained via search_tr or TRAPT.
      If a TR name without '@' is provided, fuzzy matching will be performed and return top 10 matches.

Args:
    trs: Transcriptional regulators. Can be either:
        - A list of TR names from TRAPT prediction (e.g., ['GATA4@Sample_03_0174', 'TBX5@Sample_03_0173'])
        - A path to a CSV file containing TR names (one name per line)

Returns:
    The paths to the TR binding region bed files.`, schema))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		trs, _ := argument(req, "trs")
		result, err := deps.Datasets.TRBeds(ctx, trs)
		if err != nil {
			return handleError(deps, "get_tr_bed", err)
		}
		return mcp.NewToolResultText(formatTRBeds(result)), nil
	})
}

func formatTRBeds(result *services.TRBedResult) string {
	var lines []string
	if len(result.FuzzyMatches) > 0 {
		lines = append(lines, "Fuzzy matching results:")
		for _, fm := range result.FuzzyMatches {
			lines = append(lines, fmt.Sprintf("'%s' matched: %s", fm.Keyword, strings.Join(fm.Matches, ", ")))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "Output BED files:")
	files := result.Files
	if len(files) > maxListedResults {
		files = files[:maxListedResults]
	}
	lines = append(lines, files...)
	if extra := len(result.Files) - maxListedResults; extra > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more files", extra))
	}
	return strings.Join(lines, "\n")
}

func registerSearchTRTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"search_tr",
		mcp.WithDescription(`Search transcriptional regulators (TRs) in the local TR database (hg38) by a keyword.

Note:
    For obtaining ChIP-seq data, use the search_tr function to locate TR names and then use get_tr_bed
    to retrieve their binding region bed files.

Args:
    keyword: A partial or full name of a TR to search for.

Returns:
    A list of matching TR names and their corresponding bed file paths.`),
		mcp.WithString(
			"keyword",
			mcp.Required(),
			mcp.Description("A partial or full name of a TR to search for"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, _, err := stringArgument(req, "keyword")
		if err != nil {
			return NewErrorResult(services.CodeInvalidInput, "Keyword cannot be empty"), nil
		}
		matches, err := deps.Datasets.SearchTR(ctx, keyword)
		if err != nil {
			return handleError(deps, "search_tr", err)
		}
		if len(matches) == 0 {
			return mcp.NewToolResultText("No matching TR found for keyword: " + keyword), nil
		}

		lines := make([]string, 0, maxListedResults+1)
		for i, m := range matches {
			if i == maxListedResults {
				lines = append(lines, fmt.Sprintf("... and %d more matches", len(matches)-maxListedResults))
				break
			}
			lines = append(lines, fmt.Sprintf("%s: %s", m.Name, m.Path))
		}
		return mcp.NewToolResultText(fmt.Sprintf("Found %d matching TR(s):\n%s", len(matches), strings.Join(lines, "\n"))), nil
	})
}

func genesSchema(extra string, required ...string) json.RawMessage {
	props := map[string]any{
		"genes": map[string]any{
			"anyOf": []any{
				map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				map[string]any{"type": "string"},
			},
			"description": genesArgDescription,
		},
	}
	if extra != "" {
		props[extra] = map[string]any{"type": "string"}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	b, _ := json.Marshal(schema)
	return b
}

func registerGenePositionTool(s *server.MCPServer, deps *Deps) {
	tool := readOnly(mcp.NewToolWithRawSchema("get_gene_position", `Query the positions of genes and return a Gene-bed file path (hg38).

Args:
    genes: `+genesArgDescription+`

Returns:
    The path to the gene bed file.`, genesSchema("", "genes")))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		genes, _ := argument(req, "genes")
		path, err := deps.Datasets.GenePosition(ctx, genes)
		if err != nil {
			return handleError(deps, "get_gene_position", err)
		}
		return mcp.NewToolResultText(path), nil
	})
}

// genesOrAll returns the genes argument, defaulting to "all" when omitted.
func genesOrAll(req mcp.CallToolRequest) any {
	genes, ok := argument(req, "genes")
	if !ok {
		return identifiers.All
	}
	return genes
}

func registerTCGAExpressionTool(s *server.MCPServer, deps *Deps) {
	tool := readOnly(mcp.NewToolWithRawSchema("get_tcga_cancer_express", fmt.Sprintf(`Get multi-sample expression data for a given TCGA cancer type from the local TCGA database.

Args:
    cancer: Cancer types in local database (must be one of: %s)
    genes: %s (default "all")

Returns:
    The TCGA cancer genes expression file.`, strings.Join(deps.Registry.CancerTypes(), ", "), genesArgDescription),
		genesSchema("cancer", "cancer")))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cancer, _, err := stringArgument(req, "cancer")
		if err != nil {
			return NewErrorResult(services.CodeInvalidInput, "Cancer type must be a string, "+err.Error()), nil
		}
		path, err := deps.Datasets.TCGAExpression(ctx, cancer, genesOrAll(req))
		if err != nil {
			return handleError(deps, "get_tcga_cancer_express", err)
		}
		return mcp.NewToolResultText(path), nil
	})
}

func registerMeanExpressionTool(s *server.MCPServer, deps *Deps) {
	tool := readOnly(mcp.NewToolWithRawSchema("get_mean_express_data", fmt.Sprintf(`Get average gene expression data for a given data source from the local database.

Args:
    data_source: Data sources in local database (must be one of: %s)
    genes: %s (default "all")

Returns:
    The average gene expression file.`, strings.Join(deps.Registry.ExpressionSources(), ", "), genesArgDescription),
		genesSchema("data_source", "data_source")))

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dataSource, _, err := stringArgument(req, "data_source")
		if err != nil {
			return NewErrorResult(services.CodeInvalidInput, "Data source must be a string, "+err.Error()), nil
		}
		path, err := deps.Datasets.MeanExpression(ctx, dataSource, genesOrAll(req))
		if err != nil {
			return handleError(deps, "get_mean_express_data", err)
		}
		return mcp.NewToolResultText(path), nil
	})
}
