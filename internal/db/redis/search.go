package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragchat/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchKNN runs a KNN query over the field aliased "vector".
// Cosine distances are returned as similarities clamped to [0,1].
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	filter := q.PreFilter
	if filter == "" {
		filter = "*"
	} else {
		filter = "(" + filter + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @vector $BLOB]", filter, q.K)

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, vectorScoreField)
	}
	args = append(args,
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", db.EncodeVector(q.Vector),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseSearchReply(raw)
	if err != nil {
		return nil, err
	}
	for i := range res.Entries {
		e := &res.Entries[i]
		if v, ok := e.Fields[vectorScoreField]; ok {
			if d, perr := strconv.ParseFloat(v, 64); perr == nil {
				e.Score = max(0, 1-d)
			}
			delete(e.Fields, vectorScoreField)
		}
	}
	return res, nil
}

// SearchList pages through documents matching query.
func (s *Store) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	args := []string{index, query}
	if len(fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}
	args = append(args, "LIMIT", strconv.Itoa(offset), strconv.Itoa(limit), "DIALECT", "2")

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchReply(raw)
}

// parseSearchReply decodes [total, key1, fields1, key2, fields2, ...].
func parseSearchReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key, Fields: parseFieldPairs(fields)})
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
