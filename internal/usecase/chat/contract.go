package chat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/usecase/vectorstore"
)

// Searcher retrieves the chunks nearest to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Match, error)
}
