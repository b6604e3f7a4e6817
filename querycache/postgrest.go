package querycache

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/supabase-community/postgrest-go"
)

// PostgrestStore implements RemoteStore against a hosted PostgREST endpoint
// (the relational store LibroVision rides on). Row-level security and the
// counter-recomputing triggers live server-side; this adapter only shapes
// requests.
type PostgrestStore struct {
	client *postgrest.Client
}

var _ RemoteStore = (*PostgrestStore)(nil)

// NewPostgrestStore creates a store client for the given REST endpoint.
func NewPostgrestStore(baseURL, apiKey, schema string) *PostgrestStore {
	headers := map[string]string{
		"apikey":        apiKey,
		"Authorization": "Bearer " + apiKey,
	}
	return &PostgrestStore{client: postgrest.NewClient(baseURL, schema, headers)}
}

// Read fetches rows matching the resource descriptor, requesting an exact
// count so paginated queries can derive their total page count.
func (s *PostgrestStore) Read(ctx context.Context, res Resource) ([]byte, int64, error) {
	q := s.client.From(res.Collection).Select("*", "exact", false)

	if res.ID != "" {
		q = q.Eq("id", res.ID)
	}
	for _, col := range sortedFilterKeys(res.Filters) {
		q = q.Eq(col, res.Filters[col])
	}
	if res.OrderBy != "" {
		q = q.Order(res.OrderBy, &postgrest.OrderOpts{Ascending: !res.Descending})
	}
	if res.Limit > 0 {
		if res.Offset > 0 {
			q = q.Range(res.Offset, res.Offset+res.Limit-1, "")
		} else {
			q = q.Limit(res.Limit, "")
		}
	}

	data, total, err := q.Execute()
	if err != nil {
		return nil, 0, wrapPostgrestErr(err)
	}
	if res.Single {
		return unwrapSingle(data, res.Collection, total)
	}
	return data, total, nil
}

// unwrapSingle reduces a one-row result array to the row itself so cached
// single-entity values are objects.
func unwrapSingle(data []byte, collection string, total int64) ([]byte, int64, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		// Already an object (e.g. a fake store in tests); pass through.
		return data, total, nil
	}
	if len(rows) == 0 {
		return nil, 0, NotFound(collection + " row not found")
	}
	return rows[0], 1, nil
}

// Write issues the state-changing request for the operation.
func (s *PostgrestStore) Write(ctx context.Context, op WriteOp) ([]byte, error) {
	builder := s.client.From(op.Resource.Collection)

	var q *postgrest.FilterBuilder
	switch op.Action {
	case ActionInsert:
		q = builder.Insert(op.Payload, false, "", "representation", "exact")
	case ActionUpsert:
		onConflict := op.OnConflict
		if onConflict == "" {
			onConflict = "id"
		}
		q = builder.Insert(op.Payload, true, onConflict, "representation", "exact")
	case ActionUpdate:
		q = builder.Update(op.Payload, "representation", "exact")
	case ActionDelete:
		q = builder.Delete("representation", "exact")
	default:
		return nil, &RequestError{Status: http.StatusBadRequest, Message: "unknown write action"}
	}

	if op.Action == ActionUpdate || op.Action == ActionDelete {
		if op.Resource.ID != "" {
			q = q.Eq("id", op.Resource.ID)
		}
		for _, col := range sortedFilterKeys(op.Resource.Filters) {
			q = q.Eq(col, op.Resource.Filters[col])
		}
	}

	data, _, err := q.Execute()
	if err != nil {
		return nil, wrapPostgrestErr(err)
	}
	return data, nil
}

// wrapPostgrestErr maps client errors into the retryable taxonomy. The
// postgrest client does not surface response status codes on its errors, so
// failures default to retryable gateway errors; the bounded retry policy
// keeps genuinely broken requests from looping.
func wrapPostgrestErr(err error) error {
	return &RequestError{Status: http.StatusBadGateway, Message: "postgrest request failed", Cause: err}
}

func sortedFilterKeys(filters map[string]string) []string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
