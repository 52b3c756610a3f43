package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/askdb/askdb/internal/model"
)

const correctionsURI = "askdb://corrections"

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			correctionsURI,
			"Query Corrections",
			mcp.WithResourceDescription(
				"Every correction recorded for a generated query: the question, the "+
					"wrong SQL, the correct SQL and an optional explanation.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleCorrectionsResource,
	)
}

// handleCorrectionsResource returns all stored corrections as JSON.
func (s *MCPServer) handleCorrectionsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	corrections, err := s.assistant.AllCorrections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	if corrections == nil {
		corrections = []model.Correction{}
	}

	b, err := json.MarshalIndent(corrections, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal corrections: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      correctionsURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
