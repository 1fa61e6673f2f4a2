package domain

import "time"

// CallProvider names the voice backend that handled a call attempt.
type CallProvider string

const (
	ProviderDomestic      CallProvider = "domestic_tts"
	ProviderInternational CallProvider = "twilio"
)

type CallStatus string

const (
	CallInitiated        CallStatus = "initiated"
	CallFailedToInitiate CallStatus = "failed_to_initiate"
)

// CallRequest is the normalized input for every voice adapter.
type CallRequest struct {
	To          string
	Content     string
	AccountName string
	UserID      string
}

// CallLog is the append-only audit row for one call attempt.
type CallLog struct {
	ID          int64        `db:"id"`
	UserID      string       `db:"user_id"`
	PhoneNumber string       `db:"phone_number"`
	Message     string       `db:"message"`
	Provider    CallProvider `db:"provider"`
	CallID      *string      `db:"call_sid_or_task_id"`
	Status      CallStatus   `db:"status"`
	AccountName string       `db:"account_name"`
	CreatedAt   time.Time    `db:"created_at"`
}

// CallStatusUpdate is a provider-reported progress event for a placed call.
type CallStatusUpdate struct {
	CallSID  string `db:"call_sid"`
	Status   string `db:"status"`
	Duration *int   `db:"duration"`
}
