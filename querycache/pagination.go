package querycache

import (
	"context"
	"encoding/json"
	"fmt"
)

// PagedResult accumulates list pages under the base query key. Items holds
// every row fetched so far in page order; HasMore derives from comparing the
// last fetched page against the reported total page count.
type PagedResult struct {
	Items      []json.RawMessage `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	HasMore    bool              `json:"has_more"`
}

// fetchedPage carries one page read through the de-duplication group.
type fetchedPage struct {
	data  []byte
	total int64
}

// TotalPages computes the page count for a total row count.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

// FetchPage fetches one page of a list query and appends it to the
// accumulated result cached under the base query key. Re-requesting a page
// at or below the accumulated high-water mark serves the accumulation
// without a network call.
func (c *Client) FetchPage(ctx context.Context, q Query, page, pageSize int) (PagedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	baseKey := c.Key(q)
	pol := c.Policy(q.Type)

	var acc PagedResult
	if e, ok := c.store.Get(ctx, baseKey); ok {
		if err := json.Unmarshal(e.Data, &acc); err == nil {
			if page <= acc.Page && pageSize == acc.PageSize {
				return acc, nil
			}
		} else {
			acc = PagedResult{}
		}
	}

	res := q.Resource
	res.Limit = pageSize
	res.Offset = (page - 1) * pageSize

	// Concurrent requests for the same page share one network call, same as
	// FetchRaw's miss de-duplication.
	flightKey := fmt.Sprintf("%s#%d/%d", baseKey, page, pageSize)
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		data, total, err := c.readRemote(ctx, res)
		if err != nil {
			return nil, err
		}
		return fetchedPage{data: data, total: total}, nil
	})
	if err != nil {
		return acc, err
	}
	fp := v.(fetchedPage)

	var items []json.RawMessage
	if err := json.Unmarshal(fp.data, &items); err != nil {
		return acc, err
	}

	totalPages := TotalPages(fp.total, pageSize)
	if acc.PageSize != pageSize || page != acc.Page+1 {
		// Page size changed or the caller skipped ahead; restart accumulation.
		acc.Items = nil
	}
	acc.Items = append(acc.Items, items...)
	acc.Page = page
	acc.PageSize = pageSize
	acc.Total = int(fp.total)
	acc.TotalPages = totalPages
	acc.HasMore = page < totalPages

	if encoded, err := json.Marshal(acc); err == nil {
		c.store.Set(ctx, baseKey, encoded, pol.MaxAge, pol.Persistent)
	}
	return acc, nil
}

// DecodeItems unmarshals accumulated page items into a typed slice.
func DecodeItems[T any](r PagedResult) ([]T, error) {
	out := make([]T, 0, len(r.Items))
	for _, raw := range r.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
