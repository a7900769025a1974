package events

// NotificationEvent is published for every message handed to the
// notification channel, whether or not delivery succeeded.
type NotificationEvent struct {
	RequesterID string
	Text        string
	Delivered   bool
}
