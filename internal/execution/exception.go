package execution

import (
	"fmt"

	"github.com/ctrager/streamcore/internal/offset"
)

// QueryException is captured when the execution loop's source poll,
// plan execution, or sink commit fails. It is stored once, surfaces
// through AwaitTermination, and ends the query; recovery is the
// caller's job, by restarting the query against the Source/Sink.
type QueryException struct {
	Message     string
	Cause       error
	StartOffset *offset.Composite
	EndOffset   *offset.Composite // Loop never sets it; always nil for failures Loop records
}

func (e *QueryException) Error() string {
	if e.StartOffset != nil {
		return fmt.Sprintf("%s (since %s)", e.Message, e.StartOffset)
	}
	return e.Message
}

func (e *QueryException) Unwrap() error {
	return e.Cause
}
