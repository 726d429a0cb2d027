package chunk

import (
	"testing"
	"time"
)

var uploaded = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Valid(t *testing.T) {
	c, err := New("abc", 2, "hello", Source{Name: "a.txt", Page: 3, UploadedAt: uploaded})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID() != "abc_2" {
		t.Errorf("ID = %q, want abc_2", c.ID())
	}
	if c.Page() != 3 || c.Source() != "a.txt" || c.DocumentID() != "abc" {
		t.Errorf("unexpected chunk: %+v", c)
	}
}

func TestNew_Validation(t *testing.T) {
	src := Source{Name: "a.txt", UploadedAt: uploaded}
	tests := []struct {
		name    string
		docID   string
		ordinal int
		content string
		src     Source
	}{
		{"no document", "", 0, "x", src},
		{"negative ordinal", "d", -1, "x", src},
		{"blank content", "d", 0, "  \n", src},
		{"no source", "d", 0, "x", Source{UploadedAt: uploaded}},
		{"negative page", "d", 0, "x", Source{Name: "a", Page: -1, UploadedAt: uploaded}},
		{"no timestamp", "d", 0, "x", Source{Name: "a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.docID, tc.ordinal, tc.content, tc.src); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	c, err := New("doc", 0, "body", Source{Name: "r.md", Page: 7, UploadedAt: uploaded})
	if err != nil {
		t.Fatal(err)
	}

	md := c.Metadata()
	for _, k := range []string{MetaDocumentID, MetaChunkID, MetaSource, MetaPage, MetaUploadedAt} {
		if md[k] == "" {
			t.Errorf("metadata missing %s", k)
		}
	}

	back := FromMetadata("body", md, time.Now())
	if back.ID() != c.ID() || back.Page() != 7 || !back.UploadedAt().Equal(uploaded) {
		t.Errorf("round trip mismatch: %+v vs %+v", back, c)
	}
}

func TestMetadata_OmitsUnknownPage(t *testing.T) {
	c, _ := New("doc", 0, "body", Source{Name: "r.md", UploadedAt: uploaded})
	if _, ok := c.Metadata()[MetaPage]; ok {
		t.Error("page should be omitted when unknown")
	}
}

func TestFromMetadata_Defaults(t *testing.T) {
	now := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)
	c := FromMetadata("text", map[string]string{MetaUploadedAt: "garbage", MetaPage: "x"}, now)

	if c.DocumentID() != UnknownDocumentID {
		t.Errorf("DocumentID = %q", c.DocumentID())
	}
	if c.Source() != UnknownSource {
		t.Errorf("Source = %q", c.Source())
	}
	if !c.UploadedAt().Equal(now) {
		t.Errorf("UploadedAt = %v, want %v", c.UploadedAt(), now)
	}
	if c.Page() != 0 {
		t.Errorf("Page = %d", c.Page())
	}
}
