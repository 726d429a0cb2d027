package ragchat

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/chunk"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

var uploadedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecord(t *testing.T, id, name string) record.Record {
	t.Helper()
	r, err := record.New(id, name, "text/plain", "/data/"+id+".txt", 42, uploadedAt)
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return r
}

func TestUpload_MapsResults(t *testing.T) {
	var got []ingest.File
	ing := &mockIngest{uploadFn: func(_ context.Context, files []ingest.File) ([]upload.Result, error) {
		got = files
		return []upload.Result{
			upload.NewOK("a.txt", upload.Receipt{
				Document:      testRecord(t, "doca", "a.txt"),
				ChunksIndexed: 3,
				Status:        upload.StatusIndexed,
			}),
			upload.NewError("b.pptx", domain.ErrParse),
		}, nil
	}}
	c := newMockClient(ing, nil)

	res, err := c.Upload(context.Background(),
		File{Name: "a.txt", Content: strings.NewReader("hello")},
		File{Name: "b.pptx", ContentType: "application/vnd.ms-powerpoint", Content: strings.NewReader("x")},
	)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(got) != 2 || got[1].ContentType != "application/vnd.ms-powerpoint" {
		t.Fatalf("files passed = %+v", got)
	}
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].Err != nil || res[0].Document.ID != "doca" || res[0].ChunksIndexed != 3 || res[0].Status != StatusIndexed {
		t.Errorf("first result = %+v", res[0])
	}
	if !errors.Is(res[1].Err, ErrParse) || res[1].Filename != "b.pptx" {
		t.Errorf("second result = %+v", res[1])
	}
	if ErrorKind(res[1].Err) != "parse_error" {
		t.Errorf("kind = %q", ErrorKind(res[1].Err))
	}
}

func TestUpload_BatchError(t *testing.T) {
	ing := &mockIngest{uploadFn: func(context.Context, []ingest.File) ([]upload.Result, error) {
		return nil, domain.ErrValidation
	}}
	_, err := newMockClient(ing, nil).Upload(context.Background())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDocuments(t *testing.T) {
	ing := &mockIngest{listFn: func(context.Context) ([]record.Record, error) {
		return []record.Record{testRecord(t, "docb", "b.md"), testRecord(t, "doca", "a.txt")}, nil
	}}
	docs, err := newMockClient(ing, nil).Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "docb" || docs[1].Filename != "a.txt" {
		t.Fatalf("docs = %+v", docs)
	}
	if docs[0].Size != 42 || !docs[0].UploadedAt.Equal(uploadedAt) {
		t.Errorf("doc fields = %+v", docs[0])
	}
}

func TestDocument_NotFound(t *testing.T) {
	ing := &mockIngest{getFn: func(context.Context, string) (record.Record, error) {
		return record.Record{}, domain.ErrNotFound
	}}
	_, err := newMockClient(ing, nil).Document(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChat_MapsSources(t *testing.T) {
	c1, err := chunk.New("doca", 0, "vacation is 25 days", chunk.Source{Name: "a.pdf", Page: 2, UploadedAt: uploadedAt})
	if err != nil {
		t.Fatal(err)
	}
	var gotK int
	ch := &mockChat{chatFn: func(_ context.Context, _ string, k int) (chat.Response, error) {
		gotK = k
		return chat.Response{Answer: "answer", Sources: []chunk.Chunk{c1}, RetrievalUsed: true, LatencyMs: 1.5}, nil
	}}

	resp, err := newMockClient(nil, ch).Chat(context.Background(), "how many vacation days?", 7)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotK != 7 {
		t.Errorf("topK = %d", gotK)
	}
	if !resp.RetrievalUsed || resp.Answer != "answer" || resp.LatencyMs != 1.5 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %+v", resp.Sources)
	}
	s := resp.Sources[0]
	if s.ChunkID != "doca_0" || s.DocumentID != "doca" || s.Source != "a.pdf" || s.Page != 2 {
		t.Errorf("source = %+v", s)
	}
}

func TestChat_Error(t *testing.T) {
	ch := &mockChat{chatFn: func(context.Context, string, int) (chat.Response, error) {
		return chat.Response{}, domain.ErrVectorStore
	}}
	_, err := newMockClient(nil, ch).Chat(context.Background(), "hi", 0)
	if !errors.Is(err, ErrVectorStore) {
		t.Fatalf("expected ErrVectorStore, got %v", err)
	}
}

func TestPurgeOrphans(t *testing.T) {
	ing := &mockIngest{purgeFn: func(context.Context) (int, error) { return 4, nil }}
	n, err := newMockClient(ing, nil).PurgeOrphans(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("PurgeOrphans = %d, %v", n, err)
	}
}

func TestPing_Error(t *testing.T) {
	c := newMockClient(nil, nil)
	c.index = &mockPinger{err: errors.New("down")}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHealth(t *testing.T) {
	c := newMockClient(nil, nil)
	c.healthSvc = &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK, "embedding": healthuc.CheckError},
	}}
	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["embedding"] != "error" || h.Checks["index"] != "ok" {
		t.Fatalf("health = %+v", h)
	}
}

func TestObserver_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	c := newMockClient(&mockIngest{
		purgeFn: func(context.Context) (int, error) { return 0, errors.New("boom") },
		listFn:  func(context.Context) ([]record.Record, error) { return nil, nil },
	}, nil)
	c.obs = obs

	_, _ = c.PurgeOrphans(context.Background())
	if v := testutil.ToFloat64(obs.metrics.calls.WithLabelValues("purge_orphans", "internal_error")); v != 1 {
		t.Fatalf("internal_error count = %v", v)
	}
	_, _ = c.Documents(context.Background())
	if v := testutil.ToFloat64(obs.metrics.calls.WithLabelValues("documents", "ok")); v != 1 {
		t.Fatalf("ok count = %v", v)
	}

	// A second observer on the same registry reuses the collectors.
	obs2, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("second observer: %v", err)
	}
	if obs2.metrics.calls != obs.metrics.calls {
		t.Error("expected reused collector")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), optionFunc(func(c *clientConfig) { c.driver = "cassandra" }))
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestNew_FailureRemovesTempStorage(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	c, err := New(context.Background(), optionFunc(func(c *clientConfig) { c.driver = "cassandra" }))
	if err == nil {
		t.Fatal("expected error")
	}
	if c != nil {
		t.Fatal("expected nil client on error")
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp storage left behind: %v", entries)
	}
}

func TestNew_MissingAddress(t *testing.T) {
	_, err := New(context.Background(), WithValkey("", ""))
	if err == nil {
		t.Fatal("expected error for empty address")
	}
}
