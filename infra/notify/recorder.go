package notify

import "sync"

// Recorded is one captured notification.
type Recorded struct {
	RequesterID string
	Text        string
}

// Recorder is an in-memory NotificationChannel capturing every message.
// Used in tests and by the CLI to echo courier messages.
type Recorder struct {
	mu   sync.Mutex
	msgs []Recorded
	// Err, when set, is returned from Send after recording.
	Err error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Send(requesterID, text string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, Recorded{RequesterID: requesterID, Text: text})
	err := r.Err
	r.mu.Unlock()
	return err
}

// Messages returns a copy of everything sent.
func (r *Recorder) Messages() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// ForRequester returns the texts sent to one requester, in order.
func (r *Recorder) ForRequester(requesterID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if m.RequesterID == requesterID {
			out = append(out, m.Text)
		}
	}
	return out
}
