package chi

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/domain/usage"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	"github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

// Ingestor is the document side of the API.
type Ingestor interface {
	Upload(ctx context.Context, files []ingest.File) ([]upload.Result, error)
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	PurgeOrphans(ctx context.Context) (int, error)
}

// Chatter answers questions.
type Chatter interface {
	Chat(ctx context.Context, message string, topK int) (chat.Response, error)
	Search(ctx context.Context, query string, topK int) (string, []chunk.Chunk, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period usage.Period) usage.Report
}
