package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := NewStore(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func rec(id, name string, at time.Time) record.Record {
	return record.Reconstruct(id, name, "text/plain", "/uploads/"+id, 7, at)
}

func TestStore_UpsertAndList(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	for _, r := range []record.Record{
		rec("old", "old.txt", base),
		rec("new", "new.txt", base.Add(time.Hour)),
		rec("old", "old-v2.txt", base.Add(-time.Hour)),
	} {
		if err := s.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID() != "new" || got[1].Filename() != "old-v2.txt" {
		t.Errorf("unexpected order/content: %s, %s", got[0].ID(), got[1].Filename())
	}
	if !got[0].UploadedAt().Equal(base.Add(time.Hour)) {
		t.Errorf("uploaded_at = %v", got[0].UploadedAt())
	}
}

func TestStore_Reopen(t *testing.T) {
	s, path := newStore(t)
	if err := s.Upsert(context.Background(), rec("a", "a.txt", base)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	again, err := NewStore(path, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	if _, err := again.Get(context.Background(), "a"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s, _ := newStore(t)
	if _, err := s.Get(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Upsert(ctx, rec(fmt.Sprintf("d%d", i), "f", base)); err != nil {
				t.Errorf("Upsert: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.List(ctx)
	if len(got) != 20 {
		t.Errorf("len = %d, want 20", len(got))
	}
}

func TestStore_IDs(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_ = s.Upsert(ctx, rec("a", "a.txt", base))
	_ = s.Upsert(ctx, rec("b", "b.txt", base))

	ids, err := s.IDs(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("IDs = %v, %v", ids, err)
	}

	s.Close()
	if _, err := s.IDs(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Errorf("IDs on closed db = %v, want ErrStorage", err)
	}
}
