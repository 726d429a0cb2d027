package chunk

import (
	"maps"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain/vector"
)

// Reserved hash fields; metadata keys are stored alongside them verbatim.
const (
	fieldContent = "__content"
	fieldVector  = "__vector"
	vectorAlias  = "vector"
)

func buildHashFields(e *vector.Entry) map[string]string {
	m := make(map[string]string, 2+len(e.Metadata))
	maps.Copy(m, e.Metadata)
	m[fieldContent] = e.Content
	m[fieldVector] = db.EncodeVector(e.Vector)
	return m
}

// parseHashFields splits a hash back into content and metadata, dropping the vector.
func parseHashFields(m map[string]string) (string, map[string]string) {
	md := make(map[string]string, len(m))
	var content string
	for k, v := range m {
		switch k {
		case fieldContent:
			content = v
		case fieldVector:
		default:
			md[k] = v
		}
	}
	return content, md
}
