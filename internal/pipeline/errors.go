package pipeline

import "fmt"

// EmptyResultError means every per-account fetch failed, leaving nothing
// to merge. Individual account failures are absorbed at the merge
// boundary; this error surfaces once for the whole run.
type EmptyResultError struct {
	Accounts int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("pipeline: no usable report data from any of %d accounts", e.Accounts)
}
