package ragchat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

type mockIngest struct {
	uploadFn func(ctx context.Context, files []ingest.File) ([]upload.Result, error)
	listFn   func(ctx context.Context) ([]record.Record, error)
	getFn    func(ctx context.Context, id string) (record.Record, error)
	purgeFn  func(ctx context.Context) (int, error)
}

func (m *mockIngest) Upload(ctx context.Context, files []ingest.File) ([]upload.Result, error) {
	return m.uploadFn(ctx, files)
}

func (m *mockIngest) List(ctx context.Context) ([]record.Record, error) {
	return m.listFn(ctx)
}

func (m *mockIngest) Get(ctx context.Context, id string) (record.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockIngest) PurgeOrphans(ctx context.Context) (int, error) {
	return m.purgeFn(ctx)
}

type mockChat struct {
	chatFn func(ctx context.Context, message string, topK int) (chat.Response, error)
}

func (m *mockChat) Chat(ctx context.Context, message string, topK int) (chat.Response, error) {
	return m.chatFn(ctx, message, topK)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newMockClient(ing *mockIngest, ch *mockChat) *Client {
	return &Client{
		ingestSvc: ing,
		chatSvc:   ch,
		healthSvc: &mockHealth{},
		index:     &mockPinger{},
		obs:       &observer{},
	}
}
