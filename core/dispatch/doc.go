// Package dispatch orchestrates call-vehicle sessions: it validates a
// request against the fleet and the requester's funds, reserves the vehicle,
// hands it to the navigation provider and settles payment exactly once when
// the provider reports a terminal outcome.
//
// Sessions move through Requested -> Validating -> EnRoute and end in
// Completed, Failed or Rejected. There are no automatic retries; a rejected
// or failed session must be re-requested from scratch with a fresh quote.
// Callers observe session state and bus events, never exceptions: rejections
// and failures are terminal and local to the session.
package dispatch
