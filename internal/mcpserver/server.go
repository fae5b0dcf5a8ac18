package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/soumk/pdfchat-api/internal/rag"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

const version = "1.0.0"

// Server exposes the document question-answering surface as MCP tools so
// agent clients can use the same service the HTTP handlers do.
type Server struct {
	ragService rag.Service
	server     *mcp.Server
	logger     *logger_i.Logger
}

type AskInput struct {
	DocumentId string `json:"document_id" jsonschema:"id of the document to ask against"`
	Question   string `json:"question" jsonschema:"the question to answer from the document"`
}

type AskOutput struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

type ListDocumentsInput struct{}

type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

func NewServer(ragService rag.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "pdfchat",
		Version: version,
	}

	s := &Server{
		ragService: ragService,
		server:     mcp.NewServer(impl, nil),
		logger:     logger_i.NewLogger("MCPServer"),
	}
	s.registerTools()
	return s
}

// Handler returns the streamable HTTP handler, mounted on the main router.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Ask a question against an ingested PDF document and get a grounded answer",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the ids of all ingested documents",
	}, s.handleListDocuments)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	answer, sources, err := s.ragService.Ask(ctx, input.DocumentId, input.Question)
	if err != nil {
		s.logger.Warn("MCP ask failed", "docId", input.DocumentId, "error", err)
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{Answer: answer, Sources: sources}, nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs := s.ragService.ListDocuments(ctx)
	return nil, ListDocumentsOutput{Documents: docs, Count: len(docs)}, nil
}
