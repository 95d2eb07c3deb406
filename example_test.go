package graphflow_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deepnoodle-ai/graphflow"
	"github.com/stretchr/testify/require"
)

func TestGraphflowLibraryExample(t *testing.T) {
	// A small moderation pipeline: classify each comment, publish the clean
	// ones, and hold the flagged ones for human review.
	type comment struct {
		Text     string  `json:"text"`
		Toxicity float64 `json:"toxicity"`
	}

	classifier := graphflow.NewExecutor("classifier")
	graphflow.RegisterHandler(classifier, func(ctx context.Context, msg string, wctx *graphflow.Context) error {
		score := 0.0
		if strings.Contains(msg, "!!") {
			score = 0.9
		}
		return wctx.SendMessage(comment{Text: msg, Toxicity: score})
	})

	publisher := graphflow.NewExecutor("publisher")
	graphflow.RegisterHandler(publisher, func(ctx context.Context, msg comment, wctx *graphflow.Context) error {
		return wctx.YieldOutput("published: " + msg.Text)
	})

	reviewPort := graphflow.NewPort[comment, bool]("moderation")
	reviewer := graphflow.NewExecutor("reviewer")
	graphflow.RegisterHandler(reviewer, func(ctx context.Context, msg comment, wctx *graphflow.Context) error {
		_, err := wctx.RequestInfo(reviewPort, msg)
		return err
	})
	graphflow.RegisterHandler(reviewer, func(ctx context.Context, approved bool, wctx *graphflow.Context) error {
		if approved {
			return wctx.YieldOutput("published after review")
		}
		return wctx.YieldOutput("rejected")
	})

	wf, err := graphflow.NewWorkflowBuilder("moderation").
		AddExecutor(classifier).
		AddExecutor(publisher).
		AddExecutor(reviewer).
		AddEdge("classifier", "publisher", graphflow.WithConditionScript(`msg["toxicity"] < 0.5`)).
		AddEdge("classifier", "reviewer", graphflow.WithConditionScript(`msg["toxicity"] >= 0.5`)).
		Build()
	require.NoError(t, err)

	manager, err := graphflow.NewCheckpointManager(graphflow.CheckpointManagerOptions{
		Store: graphflow.NewMemoryCheckpointStore(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("clean comment publishes directly", func(t *testing.T) {
		runner, err := graphflow.NewRunner(graphflow.RunnerOptions{
			Workflow:          wf,
			CheckpointManager: manager,
		})
		require.NoError(t, err)
		run, err := runner.Run(ctx, "nice article")
		require.NoError(t, err)
		require.Equal(t, graphflow.RunStatusCompleted, run.Status())
		require.Equal(t, []any{"published: nice article"}, run.Outputs())
	})

	t.Run("flagged comment waits for a moderator", func(t *testing.T) {
		runner, err := graphflow.NewRunner(graphflow.RunnerOptions{
			Workflow:          wf,
			CheckpointManager: manager,
		})
		require.NoError(t, err)
		run, err := runner.Run(ctx, "buy now!!")
		require.NoError(t, err)
		require.Equal(t, graphflow.RunStatusSuspended, run.Status())

		pending := run.PendingRequests()
		require.Len(t, pending, 1)
		require.NoError(t, run.SendResponse(ctx, pending[0].Respond(false)))
		require.NoError(t, run.Resume(ctx))
		require.Equal(t, []any{"rejected"}, run.Outputs())
	})
}
