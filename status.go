package sandwich

type SessionStatus int32

const (
	SessionStatusConnecting SessionStatus = iota
	SessionStatusAwaitingHello
	SessionStatusIdentifying
	SessionStatusAuthenticated
	SessionStatusClosed
)

func (status SessionStatus) String() string {
	return []string{
		"Connecting",
		"AwaitingHello",
		"Identifying",
		"Authenticated",
		"Closed",
	}[status]
}

type ApplicationStatus int32

const (
	ApplicationStatusIdle ApplicationStatus = iota
	ApplicationStatusStarting
	ApplicationStatusRunning
	ApplicationStatusBackoff
	ApplicationStatusFailed
	ApplicationStatusStopped
)

func (status ApplicationStatus) String() string {
	return []string{
		"Idle",
		"Starting",
		"Running",
		"Backoff",
		"Failed",
		"Stopped",
	}[status]
}
