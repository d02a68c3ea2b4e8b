package temporal

import (
	"context"
	"strconv"

	"github.com/getsentry/sentry-go"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
)

// NewSentryActivityInterceptor creates a worker interceptor that gives every activity
// execution its own Sentry hub, tagged with the workflow it belongs to
func NewSentryActivityInterceptor() interceptor.WorkerInterceptor {
	return &SentryActivityInterceptor{}
}

// SentryActivityInterceptor scopes Sentry events to the activity that raised them
type SentryActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (s *SentryActivityInterceptor) InterceptActivity(ctx context.Context, next interceptor.ActivityInboundInterceptor) interceptor.ActivityInboundInterceptor {
	return &sentryActivityInboundInterceptor{
		ActivityInboundInterceptorBase: interceptor.ActivityInboundInterceptorBase{Next: next},
	}
}

type sentryActivityInboundInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
}

// ExecuteActivity runs the activity with a cloned hub so tags of concurrent runs never mix
func (s *sentryActivityInboundInterceptor) ExecuteActivity(ctx context.Context, in *interceptor.ExecuteActivityInput) (interface{}, error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(activityTags(activity.GetInfo(ctx)))
	})

	return s.Next.ExecuteActivity(sentry.SetHubOnContext(ctx, hub), in)
}

// activityTags identifies an activity attempt. The workflow ID names the partition date and environment of the run.
func activityTags(info activity.Info) map[string]string {
	return map[string]string{
		"activity_type": info.ActivityType.Name,
		"workflow_id":   info.WorkflowExecution.ID,
		"workflow_run":  info.WorkflowExecution.RunID,
		"attempt":       strconv.Itoa(int(info.Attempt)),
		"task_queue":    info.TaskQueue,
	}
}
