package alert

import "context"

// UseCase posts operational alerts about the realtime service.
type UseCase interface {
	// DispatchRealtimeOffline reports a session whose channels went down.
	// Alerts for the same channel are suppressed during the cooldown.
	DispatchRealtimeOffline(ctx context.Context, input RealtimeOfflineInput) error
	// DispatchConfigIssue reports a startup misconfiguration.
	DispatchConfigIssue(ctx context.Context, input ConfigIssueInput) error
}
