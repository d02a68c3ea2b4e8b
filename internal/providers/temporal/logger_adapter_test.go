package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewZapLoggerAdapter(zap.New(core))

	adapter.Info("Started workflow", "WorkflowID", "pipeline-run-2024-03-17-test", "Attempt", 2)
	adapter.Warn("Odd keyvals", "Namespace", "default", "dangling")
	adapter.Error("Bad key", 42, "value")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, "temporal", entries[0].LoggerName)
	assert.Equal(t, map[string]interface{}{
		"WorkflowID": "pipeline-run-2024-03-17-test",
		"Attempt":    int64(2),
	}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{"Namespace": "default", "extra": "dangling"}, entries[1].ContextMap())

	assert.Equal(t, map[string]interface{}{"42": "value"}, entries[2].ContextMap())
}

func TestZapLoggerAdapter_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewZapLoggerAdapter(zap.New(core))

	withLogger, ok := adapter.(log.WithLogger)
	require.True(t, ok)
	withLogger.With("RunID", "r1").Debug("Heartbeat")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].ContextMap()["RunID"])
}

func TestActivityTags(t *testing.T) {
	tags := activityTags(activity.Info{
		ActivityType:      activity.Type{Name: "RunPipeline"},
		WorkflowExecution: workflow.Execution{ID: "pipeline-run-2024-03-17-production", RunID: "wf-run-1"},
		Attempt:           3,
		TaskQueue:         "bib-pipeline",
	})

	assert.Equal(t, "RunPipeline", tags["activity_type"])
	assert.Equal(t, "pipeline-run-2024-03-17-production", tags["workflow_id"])
	assert.Equal(t, "wf-run-1", tags["workflow_run"])
	assert.Equal(t, "3", tags["attempt"])
	assert.Equal(t, "bib-pipeline", tags["task_queue"])
}
