package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
	StartSession(contentID int64) error
	EndSession(ctx context.Context, contentID int64) error
	ActiveSessions() []int64
}
