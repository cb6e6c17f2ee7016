// Package notify surfaces sync and session events to the device UI layer.
// The agent itself only logs them; an embedding application swaps in its
// own implementation to raise local notifications.
package notify

import "log/slog"

// Notifier receives agent events as they occur. Implementations must not
// block; callers invoke them inline from the sync and request paths.
type Notifier interface {
	// OrderSynced fires once when a locally created order is accepted by
	// the server and assigned its server identifier.
	OrderSynced(localID, serverID string)

	// OrderSyncFailed fires when the server permanently rejects an order.
	// Transient failures (offline, expired session) do not trigger it.
	OrderSyncFailed(localID string, err error)

	// SessionExpired fires when a credential refresh fails and the session
	// is cleared. The user must authenticate again.
	SessionExpired()
}

// LogNotifier logs events through the agent logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderSynced(localID, serverID string) {
	n.logger.Info("order synced",
		slog.String("local_id", localID),
		slog.String("server_id", serverID),
	)
}

func (n *LogNotifier) OrderSyncFailed(localID string, err error) {
	n.logger.Warn("order sync failed",
		slog.String("local_id", localID),
		slog.String("error", err.Error()),
	)
}

func (n *LogNotifier) SessionExpired() {
	n.logger.Warn("session expired, re-authentication required")
}
