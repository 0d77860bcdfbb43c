package domain

// MessageKind is the key of a user-facing message
type MessageKind string

const (
	MessageInvalidInput      MessageKind = "invalid_input"
	MessageResolveSucceeded  MessageKind = "resolve_succeeded"
	MessageResolveFailed     MessageKind = "resolve_failed"
	MessageResolveRetrying   MessageKind = "resolve_retrying"
	MessageUnplayable        MessageKind = "unplayable"
	MessageDownloadCompleted MessageKind = "download_completed"
	MessageDownloadCancelled MessageKind = "download_cancelled"
	MessageDownloadFailed    MessageKind = "download_failed"
)

// Message is rendered by whatever surface is showing the pipeline
type Message struct {
	Kind   MessageKind   `json:"kind"`
	Text   string        `json:"text"`
	Reason FailureReason `json:"reason,omitempty"`
}

// Notifier displays messages to the user
type Notifier interface {
	Notify(msg Message)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg Message)

func (f NotifierFunc) Notify(msg Message) {
	f(msg)
}
