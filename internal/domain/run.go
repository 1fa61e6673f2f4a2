package domain

import "time"

// AccountOutcome classifies what a reconciliation pass did for one account.
type AccountOutcome string

const (
	OutcomeNoNewItems    AccountOutcome = "no_new_items"
	OutcomeBaseline      AccountOutcome = "baseline"
	OutcomeNotified      AccountOutcome = "notified"
	OutcomeFetchFailed   AccountOutcome = "fetch_failed"
	OutcomePersistFailed AccountOutcome = "persist_failed"
)

// AccountResult is the per-account record aggregated into a RunReport.
type AccountResult struct {
	AccountID string
	Username  string
	Outcome   AccountOutcome
	NewTweets int
	Cursor    *string
	Err       error
	Calls     []CallResult
	Broadcast bool
}

// CallResult is the per-subscriber outcome of phone fan-out.
type CallResult struct {
	UserID      string
	PhoneNumber string
	Provider    CallProvider
	CallID      *string
	Status      CallStatus
	Skipped     bool
	Err         error
}

// RunReport summarizes one scheduler invocation.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Skipped   bool
	Message   string
	Accounts  []AccountResult
	NewTweets int
	Duration  time.Duration
}

// Failed counts accounts whose pass ended in an error.
func (r *RunReport) Failed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.Err != nil {
			n++
		}
	}
	return n
}
