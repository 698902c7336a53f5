package core

import "context"

// Notifier delivers absence notifications. Implementations must not block the caller.
type Notifier interface {
	NotifyAbsent(ctx context.Context, studentName, className string)
}
