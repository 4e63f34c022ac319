package results

import (
	"context"
	"fmt"
	"sync"

	"github.com/tableport/tableport/internal/core"
)

// MemoryStore holds executions in process. Tests and one-shot runs seed it
// with Put; the server never uses it.
type MemoryStore struct {
	mu    sync.RWMutex
	execs map[string]memoryExecution
}

type memoryExecution struct {
	meta core.QueryExecution
	rows [][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{execs: make(map[string]memoryExecution)}
}

// Put registers an execution with its rows. Rows are copied; later mutation
// of the caller's slices does not leak into streams.
func (s *MemoryStore) Put(id string, columns core.ColumnSchema, rows [][]string) {
	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[id] = memoryExecution{
		meta: core.QueryExecution{ID: id, Columns: columns, RowCount: int64(len(rows))},
		rows: copied,
	}
}

func (s *MemoryStore) Execution(_ context.Context, id string) (core.QueryExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.execs[id]
	if !ok {
		return core.QueryExecution{}, fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	return exec.meta, nil
}

func (s *MemoryStore) Rows(_ context.Context, id string) (core.RowStream, error) {
	s.mu.RLock()
	exec, ok := s.execs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	return &sliceStream{rows: exec.rows}, nil
}

// sliceStream walks a fixed row slice.
type sliceStream struct {
	rows [][]string
	pos  int
}

func (s *sliceStream) Next() bool {
	if s.pos >= len(s.rows) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceStream) Row() []string { return s.rows[s.pos-1] }

func (s *sliceStream) Err() error { return nil }

func (s *sliceStream) Close() error { return nil }
