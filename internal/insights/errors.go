package insights

import "fmt"

// UpstreamRequestError means the report-creation call failed: the API
// returned an error payload, or a success payload without a job id.
type UpstreamRequestError struct {
	AccountID int64
	Message   string
}

func (e *UpstreamRequestError) Error() string {
	return fmt.Sprintf("insights: report request for account %d failed: %s", e.AccountID, e.Message)
}

// UpstreamFetchError means the report-export call returned a non-success
// status. StatusCode is the last status observed.
type UpstreamFetchError struct {
	JobID      string
	StatusCode int
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("insights: export of report %s failed with status %d", e.JobID, e.StatusCode)
}
