package adapter

import (
	"context"

	"go.temporal.io/sdk/activity"
)

// Activity defines an interface for activity operations to enable mocking
//
//go:generate mockgen -source=temporal.go -destination=../mocks/temporal.go -package=mocks -mock_names=Activity=MockActivity
type Activity interface {
	// IsActivity reports whether ctx belongs to a running Temporal activity
	IsActivity(ctx context.Context) bool
	// RecordHeartbeat reports activity progress to the Temporal server
	RecordHeartbeat(ctx context.Context, details ...interface{})
}

// RealActivity implements Activity using the standard activity package
type RealActivity struct{}

// NewActivity creates a new real activity implementation
func NewActivity() Activity {
	return &RealActivity{}
}

func (a *RealActivity) IsActivity(ctx context.Context) bool {
	return activity.IsActivity(ctx)
}

func (a *RealActivity) RecordHeartbeat(ctx context.Context, details ...interface{}) {
	activity.RecordHeartbeat(ctx, details...)
}
