package redis

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ragchat/internal/db"
)

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := NewStoreForTest(c).Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	if err := NewStoreForTest(c).Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	err := NewStoreForTest(c).WaitForReady(context.Background(), 250*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(3)),
			mock.Result(mock.RedisInt64(3)),
		})

	err := NewStoreForTest(c).HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"a": "1"}},
		{Key: "k2", Fields: map[string]string{"a": "2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_ErrorNamesKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.ErrorResult(errors.New("OOM")),
		})

	err := NewStoreForTest(c).HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"a": "1"}},
		{Key: "k2", Fields: map[string]string{"a": "2"}},
	})
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	if err := NewStoreForTest(c).HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "k")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	_, err := NewStoreForTest(c).HGetAll(context.Background(), "k")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "k")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"source": mock.RedisString("a.txt"),
		})))

	m, err := NewStoreForTest(c).HGetAll(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["source"] != "a.txt" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestDel_CountsRemoved(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(1)),
		})

	n, err := NewStoreForTest(c).Del(context.Background(), "a", "b", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisNil()))

	_, err := NewStoreForTest(c).Get(context.Background(), "k")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := NewStoreForTest(c).SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	def := &db.IndexDefinition{Name: "idx", Fields: []db.IndexField{{Name: "a", Type: db.IndexFieldTag}}}
	err := NewStoreForTest(c).CreateIndex(context.Background(), def)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	def, err := db.NewIndex("rc:chunks:idx").
		Prefix("rc:chunk:").
		Tag("document_id").
		VectorHNSW("__vector", "vector", 4, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := NewStoreForTest(c).CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"ON", "HASH", "PREFIX", "rc:chunk:", "AS", "vector", "HNSW", "COSINE", "EF_CONSTRUCTION"} {
		if !slices.Contains(got, want) {
			t.Errorf("FT.CREATE args %v missing %q", got, want)
		}
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		want  bool
		err   bool
	}{
		{"exists", mock.Result(mock.RedisArray()), true, false},
		{"unknown", mock.Result(mock.RedisError("Unknown Index name")), false, false},
		{"valkey missing", mock.Result(mock.RedisError("no such index")), false, false},
		{"transport", mock.ErrorResult(context.DeadlineExceeded), false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(tc.reply)

			got, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
			if (err != nil) != tc.err {
				t.Fatalf("err = %v, wantErr %v", err, tc.err)
			}
			if got != tc.want {
				t.Errorf("exists = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSearchKNN_ScoresAndFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "(@document_id:{d1})=>[KNN 2 @vector $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("rc:chunk:d1_0"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("0.1"),
				mock.RedisString("__content"), mock.RedisString("hello"),
			),
			mock.RedisString("rc:chunk:d1_1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"), mock.RedisString("1.4"),
			),
		)))

	res, err := NewStoreForTest(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		PreFilter: "@document_id:{d1}",
		Vector:    []float32{0.1, 0.2},
		K:         2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(res.Entries))
	}
	if s := res.Entries[0].Score; s < 0.89 || s > 0.91 {
		t.Errorf("score = %f, want ~0.9", s)
	}
	if res.Entries[1].Score != 0 {
		t.Errorf("score = %f, want clamp to 0", res.Entries[1].Score)
	}
	if _, ok := res.Entries[0].Fields["__vector_score"]; ok {
		t.Error("__vector_score should be stripped from fields")
	}
	if res.Entries[0].Fields["__content"] != "hello" {
		t.Errorf("content = %q", res.Entries[0].Fields["__content"])
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	s := NewStoreForTest(c)

	for _, q := range []*db.KNNQuery{
		{Vector: []float32{1}, K: 1},
		{IndexName: "idx", K: 1},
		{IndexName: "idx", Vector: []float32{1}},
	} {
		if _, err := s.SearchKNN(context.Background(), q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSearchList_Paging(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.SEARCH", "idx", "*", "RETURN", "1", "document_id", "LIMIT", "10", "5", "DIALECT", "2")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(11),
			mock.RedisString("rc:chunk:d9_0"),
			mock.RedisArray(mock.RedisString("document_id"), mock.RedisString("d9")),
		)))

	res, err := NewStoreForTest(c).SearchList(context.Background(), "idx", "*", 10, 5, []string{"document_id"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 11 || len(res.Entries) != 1 || res.Entries[0].Fields["document_id"] != "d9" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
