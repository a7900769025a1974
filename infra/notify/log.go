package notify

import "github.com/dixie/callvehicle/infra/logger"

// LogNotifier writes notifications to the service log. Used when no broker
// is configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(requesterID, text string) error {
	n.log.Infof("notify %s: %s", requesterID, text)
	return nil
}
