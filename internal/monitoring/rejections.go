package monitoring

import "github.com/banshee-data/sonarmap/internal/sonar"

// RejectionLogger returns an observer that logs every rejected line through
// Logf. Accepted lines are not logged.
func RejectionLogger() sonar.Observer {
	return sonar.ObserverFunc(func(e sonar.Event) {
		if e.Outcome == sonar.OutcomeAccepted {
			return
		}
		Logf("dropped line %q (%s): %v", e.Line, e.Outcome, e.Err)
	})
}
