package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// pagedRemote serves numbered rows so tests can assert exactly which slice of
// the collection each request covered.
type pagedRemote struct {
	mu    sync.Mutex
	rows  int
	delay time.Duration
	reads []Resource
}

func (p *pagedRemote) Read(ctx context.Context, res Resource) ([]byte, int64, error) {
	p.mu.Lock()
	p.reads = append(p.reads, res)
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	start := res.Offset
	end := start + res.Limit
	if end > p.rows {
		end = p.rows
	}
	items := make([]json.RawMessage, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
	}
	data, _ := json.Marshal(items)
	return data, int64(p.rows), nil
}

func (p *pagedRemote) Write(ctx context.Context, op WriteOp) ([]byte, error) {
	return nil, &RequestError{Status: 400, Message: "read-only"}
}

func (p *pagedRemote) readCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reads)
}

func reviewsQuery() Query {
	return Query{Type: "book_reviews", Resource: Resource{
		Collection: "reviews",
		Filters:    map[string]string{"book_id": "b-1"},
		OrderBy:    "created_at",
		Descending: true,
	}}
}

func TestFetchPage_Accumulates(t *testing.T) {
	ctx := context.Background()
	remote := &pagedRemote{rows: 45}
	c := newTestClient(remote, Options{})

	r1, err := c.FetchPage(ctx, reviewsQuery(), 1, 20)
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if len(r1.Items) != 20 || r1.Total != 45 || r1.TotalPages != 3 || !r1.HasMore {
		t.Errorf("page 1 = %d items, total %d, pages %d, more %v", len(r1.Items), r1.Total, r1.TotalPages, r1.HasMore)
	}

	r2, err := c.FetchPage(ctx, reviewsQuery(), 2, 20)
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if len(r2.Items) != 40 {
		t.Errorf("accumulated items after page 2 = %d, want 40", len(r2.Items))
	}

	r3, err := c.FetchPage(ctx, reviewsQuery(), 3, 20)
	if err != nil {
		t.Fatalf("page 3 failed: %v", err)
	}
	if len(r3.Items) != 45 {
		t.Errorf("accumulated items after page 3 = %d, want 45", len(r3.Items))
	}
	if r3.HasMore {
		t.Error("final page reported more pages")
	}

	// The offsets must walk the collection page by page.
	wantOffsets := []int{0, 20, 40}
	for i, res := range remote.reads {
		if res.Offset != wantOffsets[i] {
			t.Errorf("read %d offset = %d, want %d", i, res.Offset, wantOffsets[i])
		}
	}
}

func TestFetchPage_ReplaysCachedPages(t *testing.T) {
	ctx := context.Background()
	remote := &pagedRemote{rows: 45}
	c := newTestClient(remote, Options{})

	c.FetchPage(ctx, reviewsQuery(), 1, 20)
	c.FetchPage(ctx, reviewsQuery(), 2, 20)

	// Re-requesting an already-fetched page serves the accumulation.
	r, err := c.FetchPage(ctx, reviewsQuery(), 1, 20)
	if err != nil {
		t.Fatalf("replayed page failed: %v", err)
	}
	if len(r.Items) != 40 {
		t.Errorf("replayed result = %d items, want the 40 accumulated", len(r.Items))
	}
	if got := len(remote.reads); got != 2 {
		t.Errorf("remote reads = %d, want 2 (replay must not refetch)", got)
	}
}

func TestFetchPage_ConcurrentRequestsCollapse(t *testing.T) {
	ctx := context.Background()
	remote := &pagedRemote{rows: 45, delay: 20 * time.Millisecond}
	c := newTestClient(remote, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FetchPage(ctx, reviewsQuery(), 1, 20); err != nil {
				t.Errorf("fetch failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := remote.readCount(); got != 1 {
		t.Errorf("remote reads = %d, want 1 (concurrent page requests must share one call)", got)
	}
}

func TestFetchPage_PageSizeChangeRestarts(t *testing.T) {
	ctx := context.Background()
	remote := &pagedRemote{rows: 45}
	c := newTestClient(remote, Options{})

	c.FetchPage(ctx, reviewsQuery(), 1, 20)
	c.FetchPage(ctx, reviewsQuery(), 2, 20)

	r, err := c.FetchPage(ctx, reviewsQuery(), 1, 10)
	if err != nil {
		t.Fatalf("resized page failed: %v", err)
	}
	if len(r.Items) != 10 {
		t.Errorf("restarted accumulation = %d items, want 10", len(r.Items))
	}
	if r.TotalPages != 5 {
		t.Errorf("total pages = %d, want 5 at page size 10", r.TotalPages)
	}
}

func TestFetchPage_DecodeItems(t *testing.T) {
	ctx := context.Background()
	remote := &pagedRemote{rows: 3}
	c := newTestClient(remote, Options{})

	r, err := c.FetchPage(ctx, reviewsQuery(), 1, 20)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	type row struct {
		N int `json:"n"`
	}
	rows, err := DecodeItems[row](r)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(rows) != 3 || rows[2].N != 2 {
		t.Errorf("decoded rows = %+v", rows)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{45, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}
