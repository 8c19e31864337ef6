// Package mcpadapter exposes question answering and retrieval as MCP tools,
// so agents and editors can query the indexed documents over stdio.
package mcpadapter

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docforge/docqa/internal/core/ports"
)

const Version = "1.0.0"

type Server struct {
	answerer ports.QuestionAnswerer
	server   *mcp.Server
}

func NewServer(answerer ports.QuestionAnswerer) (*Server, error) {
	if answerer == nil {
		return nil, errors.New("answerer is required")
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: Version,
	}

	s := &Server{
		answerer: answerer,
		server:   mcp.NewServer(impl, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
