// Package feeder supplies per-attempt data records for placeholder
// substitution in probe requests.
package feeder

import (
	"context"
	"fmt"
	"sync"
)

// Record is a single row of data with named fields.
type Record map[string]string

// Feeder provides per-attempt data in deterministic round-robin order.
// Implementations must be safe for concurrent use.
type Feeder interface {
	Next(ctx context.Context) (Record, error)
	Close() error
	Len() int
}

// cursor hands out records round-robin. A probing session usually issues
// far more attempts than the dataset has rows, so the cursor wraps instead
// of exhausting.
type cursor struct {
	mu      sync.Mutex
	records []Record
	index   int
}

func newCursor(records []Record) (*cursor, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset contains no records")
	}
	return &cursor{records: records}, nil
}

func (c *cursor) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.records[c.index]
	c.index = (c.index + 1) % len(c.records)
	return record, nil
}

func (c *cursor) Close() error {
	return nil
}

func (c *cursor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
