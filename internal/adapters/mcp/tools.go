package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docforge/docqa/internal/core/domain"
)

type AskInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from indexed documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default 5)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
}

type AskOutput struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources" jsonschema:"distinct source document ids in rank order"`
	Confidence float64  `json:"confidence"`
}

type SearchInput struct {
	Query      string `json:"query" jsonschema:"text to search for in indexed documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default 5)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict retrieval to one document"`
}

type SearchOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

type ChunkOutput struct {
	DocumentID  string  `json:"document_id"`
	Filename    string  `json:"filename"`
	Text        string  `json:"text"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
	Score       float64 `json:"score"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question using the contents of indexed documents",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Retrieve the document chunks most relevant to a query",
	}, s.handleSearch)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.answerer.Ask(ctx, input.Question, input.TopK, input.DocumentID)
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:     answer.Text,
		Sources:    answer.Sources,
		Confidence: answer.Confidence,
	}, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	chunks, err := s.answerer.Search(ctx, input.Query, input.TopK, input.DocumentID)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = chunkOutput(chunks[i])
	}
	return nil, output, nil
}

func chunkOutput(chunk domain.RetrievedChunk) ChunkOutput {
	return ChunkOutput{
		DocumentID:  chunk.DocumentID,
		Filename:    chunk.Filename,
		Text:        chunk.Text,
		ChunkIndex:  chunk.ChunkIndex,
		TotalChunks: chunk.TotalChunks,
		Score:       chunk.Score,
	}
}
