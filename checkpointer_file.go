package graphflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileCheckpointStore persists checkpoints to disk, one directory per run
// with one JSON file per checkpoint. A "latest.json" symlink tracks the most
// recent checkpoint for quick inspection.
type FileCheckpointStore struct {
	dataDir string
}

// NewFileCheckpointStore creates a file-based checkpoint store rooted at
// dataDir, defaulting to ~/.graphflow/runs.
func NewFileCheckpointStore(dataDir string) (*FileCheckpointStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".graphflow", "runs")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileCheckpointStore{dataDir: dataDir}, nil
}

func (s *FileCheckpointStore) checkpointPath(runID, checkpointID string) string {
	return filepath.Join(s.dataDir, runID, fmt.Sprintf("checkpoint-%s.json", checkpointID))
}

func (s *FileCheckpointStore) SaveCheckpoint(ctx context.Context, runID, checkpointID string, data []byte) error {
	runDir := filepath.Join(s.dataDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	checkpointPath := s.checkpointPath(runID, checkpointID)
	if err := os.WriteFile(checkpointPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	latestPath := filepath.Join(runDir, "latest.json")
	if err := s.updateLatestSymlink(checkpointPath, latestPath); err != nil {
		return fmt.Errorf("failed to update latest symlink: %w", err)
	}
	return nil
}

func (s *FileCheckpointStore) LoadCheckpoint(ctx context.Context, runID, checkpointID string) ([]byte, error) {
	data, err := os.ReadFile(s.checkpointPath(runID, checkpointID))
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	return data, nil
}

func (s *FileCheckpointStore) ListCheckpoints(ctx context.Context, runID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, "checkpoint-"), ".json"))
	}
	// Checkpoint IDs sort lexicographically in creation order
	sort.Strings(ids)
	return ids, nil
}

func (s *FileCheckpointStore) DeleteRun(ctx context.Context, runID string) error {
	if err := os.RemoveAll(filepath.Join(s.dataDir, runID)); err != nil {
		return fmt.Errorf("failed to delete run directory: %w", err)
	}
	return nil
}

// RunSummary describes a run's most recent checkpoint.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	WorkflowName string    `json:"workflow_name"`
	Status       RunStatus `json:"status"`
	SuperStep    int       `json:"super_step"`
	Checkpoints  int       `json:"checkpoints"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListRuns returns a summary of every run with checkpoints in this store,
// newest first.
func (s *FileCheckpointStore) ListRuns(ctx context.Context) ([]*RunSummary, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*RunSummary{}, nil
		}
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}
	var summaries []*RunSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, err := s.runSummary(ctx, entry.Name())
		if err != nil {
			// Skip runs we can't read
			continue
		}
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// runSummary reads the latest checkpoint for a run and summarizes it.
func (s *FileCheckpointStore) runSummary(ctx context.Context, runID string) (*RunSummary, error) {
	ids, err := s.ListCheckpoints(ctx, runID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	data, err := s.LoadCheckpoint(ctx, runID, ids[len(ids)-1])
	if err != nil {
		return nil, err
	}
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, err
	}
	return &RunSummary{
		RunID:        checkpoint.RunID,
		WorkflowName: checkpoint.WorkflowName,
		Status:       checkpoint.Status,
		SuperStep:    checkpoint.SuperStep,
		Checkpoints:  len(ids),
		CreatedAt:    checkpoint.CreatedAt,
	}, nil
}

// updateLatestSymlink points the latest symlink at the newest checkpoint.
func (s *FileCheckpointStore) updateLatestSymlink(checkpointPath, latestPath string) error {
	if _, err := os.Lstat(latestPath); err == nil {
		if err := os.Remove(latestPath); err != nil {
			return fmt.Errorf("failed to remove existing latest symlink: %w", err)
		}
	}

	// On Windows, copy the file instead of creating a symlink
	if strings.Contains(os.Getenv("OS"), "Windows") {
		data, err := os.ReadFile(checkpointPath)
		if err != nil {
			return fmt.Errorf("failed to read checkpoint for copy: %w", err)
		}
		return os.WriteFile(latestPath, data, 0644)
	}

	rel, err := filepath.Rel(filepath.Dir(latestPath), checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to create relative path: %w", err)
	}
	return os.Symlink(rel, latestPath)
}
