package graphflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgresStore(t *testing.T) (*PostgresCheckpointStore, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("graphflow_test"),
		postgres.WithUsername("graphflow"),
		postgres.WithPassword("graphflow"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewPostgresCheckpointStore(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store, ctx
}

func TestPostgresCheckpointStore(t *testing.T) {
	store, ctx := setupPostgresStore(t)

	first := NewCheckpointID()
	second := NewCheckpointID()
	require.NoError(t, store.SaveCheckpoint(ctx, "run_a", first, []byte(`{"n":1}`)))
	require.NoError(t, store.SaveCheckpoint(ctx, "run_a", second, []byte(`{"n":2}`)))
	require.NoError(t, store.SaveCheckpoint(ctx, "run_b", NewCheckpointID(), []byte(`{"n":3}`)))

	t.Run("checkpoints are immutable", func(t *testing.T) {
		err := store.SaveCheckpoint(ctx, "run_a", first, []byte(`{"n":9}`))
		require.Error(t, err)
	})

	t.Run("load round-trips", func(t *testing.T) {
		data, err := store.LoadCheckpoint(ctx, "run_a", second)
		require.NoError(t, err)
		require.JSONEq(t, `{"n":2}`, string(data))
	})

	t.Run("load missing checkpoint fails", func(t *testing.T) {
		_, err := store.LoadCheckpoint(ctx, "run_a", "ckpt_missing")
		require.Error(t, err)
		require.Contains(t, err.Error(), "not found")
	})

	t.Run("list is per run oldest first", func(t *testing.T) {
		ids, err := store.ListCheckpoints(ctx, "run_a")
		require.NoError(t, err)
		require.Equal(t, []string{first, second}, ids)
	})

	t.Run("delete removes only one run", func(t *testing.T) {
		require.NoError(t, store.DeleteRun(ctx, "run_a"))
		ids, err := store.ListCheckpoints(ctx, "run_a")
		require.NoError(t, err)
		require.Empty(t, ids)
		ids, err = store.ListCheckpoints(ctx, "run_b")
		require.NoError(t, err)
		require.Len(t, ids, 1)
	})
}

func TestPostgresStoreBacksFullRun(t *testing.T) {
	store, ctx := setupPostgresStore(t)
	manager, err := NewCheckpointManager(CheckpointManagerOptions{Store: store})
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{
		Workflow:          buildPipelineWorkflow(t),
		CheckpointManager: manager,
	})
	require.NoError(t, err)
	run, err := runner.Run(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, []any{"HELLO!"}, run.Outputs())
	infos := checkpointInfos(run.Events())
	require.Len(t, infos, 3)

	resumed, err := NewRunner(RunnerOptions{
		Workflow:          buildPipelineWorkflow(t),
		CheckpointManager: manager,
	})
	require.NoError(t, err)
	resumedRun, err := resumed.ResumeFromCheckpoint(ctx, infos[1])
	require.NoError(t, err)
	require.Equal(t, []any{"HELLO!"}, resumedRun.Outputs())
}
