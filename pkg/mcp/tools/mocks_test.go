package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-biotools/pkg/catalog"
	"github.com/ekaya-inc/ekaya-biotools/pkg/services"
)

// mockShellService implements services.ShellService for testing.
type mockShellService struct {
	result *services.CommandResult
	err    error

	gotCommand string
	gotTimeout *float64
	calls      int
}

func (m *mockShellService) Execute(ctx context.Context, command string, timeout *float64) (*services.CommandResult, error) {
	m.calls++
	m.gotCommand = command
	m.gotTimeout = timeout
	return m.result, m.err
}

// mockDatasetService implements services.DatasetService for testing.
type mockDatasetService struct {
	categories []catalog.Category
	path       string
	trResult   *services.TRBedResult
	entries    []catalog.Entry
	err        error

	gotArgs []any
}

func (m *mockDatasetService) GenesetCategories(ctx context.Context) ([]catalog.Category, error) {
	return m.categories, m.err
}

func (m *mockDatasetService) AnnotationBed(ctx context.Context, biologicalType string) (string, error) {
	m.gotArgs = []any{biologicalType}
	return m.path, m.err
}

func (m *mockDatasetService) TRBeds(ctx context.Context, trs any) (*services.TRBedResult, error) {
	m.gotArgs = []any{trs}
	return m.trResult, m.err
}

func (m *mockDatasetService) SearchTR(ctx context.Context, keyword string) ([]catalog.Entry, error) {
	m.gotArgs = []any{keyword}
	return m.entries, m.err
}

func (m *mockDatasetService) GenePosition(ctx context.Context, genes any) (string, error) {
	m.gotArgs = []any{genes}
	return m.path, m.err
}

func (m *mockDatasetService) TCGAExpression(ctx context.Context, cancer string, genes any) (string, error) {
	m.gotArgs = []any{cancer, genes}
	return m.path, m.err
}

func (m *mockDatasetService) MeanExpression(ctx context.Context, dataSource string, genes any) (string, error) {
	m.gotArgs = []any{dataSource, genes}
	return m.path, m.err
}

func testRegistry() *catalog.Registry {
	r := catalog.NewRegistry()
	r.AddAnnotation("Enhancer", "/data/human/human_Enhancer.bed")
	r.AddAnnotation("TFBS", "/data/human/human_TFBS.bed")
	r.AddExpressionSource("cell_line_CCLE", "/data/exp/cell_line_CCLE.csv.gz")
	r.SetCancerTypes([]string{"BRCA", "LUAD"})
	return r
}

func newTestServer(t *testing.T, datasets services.DatasetService, shell services.ShellService) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterAll(s, &Deps{
		Registry:              testRegistry(),
		Datasets:              datasets,
		Shell:                 shell,
		BashPrompt:            "Run commands inside the analysis container.",
		DefaultTimeoutSeconds: 6000,
		Version:               "test",
		Logger:                zap.NewNop(),
	})
	return s
}

type toolResponse struct {
	Text    string
	IsError bool
}

// callTool invokes a tool through the JSON-RPC entry point.
func callTool(t *testing.T, s *server.MCPServer, name string, args any) toolResponse {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	req, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "tools/call", "params": params})
	require.NoError(t, err)

	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), req))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []mcp.TextContent `json:"content"`
			IsError bool              `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	if response.Error != nil {
		t.Fatalf("tools/call %s returned protocol error: %s", name, response.Error.Message)
	}
	require.NotEmpty(t, response.Result.Content, fmt.Sprintf("no content from %s", name))
	return toolResponse{Text: response.Result.Content[0].Text, IsError: response.Result.IsError}
}

func parseErrorResponse(t *testing.T, resp toolResponse) ErrorResponse {
	t.Helper()
	require.True(t, resp.IsError, "expected error result, got %q", resp.Text)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &errResp))
	return errResp
}
