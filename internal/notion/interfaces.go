package notion

import (
	"context"

	"github.com/jomei/notionapi"
)

// Service defines the subset of the Notion API the dashboard reads from.
// This interface enables mocking and testing of Notion operations.
type Service interface {
	// QueryDatabase queries a Notion database with the given request.
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}
