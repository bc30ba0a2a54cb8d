package executor

// DeadPathError reports that a fork's guard was unsatisfiable on both
// sides: the path is dead and must be discarded rather than folded into
// any footprint.
type DeadPathError struct{}

func (*DeadPathError) Error() string { return "executor: path is dead (fork guard unsatisfiable)" }

// AbortedError reports that a task was cancelled cooperatively via the
// scheduler's abort flag (spec.md §4.C "Cancellation").
type AbortedError struct{}

func (*AbortedError) Error() string { return "executor: task aborted" }
