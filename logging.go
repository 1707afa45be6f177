package corosched

import (
	"context"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Logger is the structured logger every scheduler event is reported
// through, using the lg.FromContext(ctx).Info(msg, lg.Any(...)) call
// shape at cycle granularity: the scheduler owns one Logger for its
// whole lifetime rather than deriving one from each job's context.
type Logger = lg.ZLogger

// newDefaultLogger returns the zlog logger bound to a background
// context, used whenever Settings.Logger is left nil.
func newDefaultLogger() Logger {
	return lg.FromContext(context.Background())
}
