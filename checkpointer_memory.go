package graphflow

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCheckpointStore keeps checkpoints in process memory. Useful for tests
// and for short-lived runs that only need in-run resumability.
type MemoryCheckpointStore struct {
	mutex sync.Mutex
	runs  map[string]map[string][]byte
	order map[string][]string
}

// NewMemoryCheckpointStore creates an empty in-memory checkpoint store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		runs:  map[string]map[string][]byte{},
		order: map[string][]string{},
	}
}

func (s *MemoryCheckpointStore) SaveCheckpoint(ctx context.Context, runID, checkpointID string, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.runs[runID]; !ok {
		s.runs[runID] = map[string][]byte{}
	}
	if _, exists := s.runs[runID][checkpointID]; exists {
		return fmt.Errorf("checkpoint %s already committed for run %s", checkpointID, runID)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.runs[runID][checkpointID] = stored
	s.order[runID] = append(s.order[runID], checkpointID)
	return nil
}

func (s *MemoryCheckpointStore) LoadCheckpoint(ctx context.Context, runID, checkpointID string) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, ok := s.runs[runID][checkpointID]
	if !ok {
		return nil, fmt.Errorf("checkpoint %s not found for run %s", checkpointID, runID)
	}
	return data, nil
}

func (s *MemoryCheckpointStore) ListCheckpoints(ctx context.Context, runID string) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]string{}, s.order[runID]...), nil
}

func (s *MemoryCheckpointStore) DeleteRun(ctx context.Context, runID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.runs, runID)
	delete(s.order, runID)
	return nil
}
