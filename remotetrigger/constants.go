package remotetrigger

// RequestSuffix and ResponseSuffix are appended to a server id to form
// the two segment names a RemoteTriggerServer/Client pair rendezvous on.
const (
	RequestSuffix  = ".req"
	ResponseSuffix = ".res"
)

// RequestSegmentName and ResponseSegmentName build the two segment names
// for a given server id.
func RequestSegmentName(serverID string) string  { return serverID + RequestSuffix }
func ResponseSegmentName(serverID string) string { return serverID + ResponseSuffix }

// pollInterval bounds how long the server's blocking wait loop waits
// before re-checking whether it has been asked to stop.
const pollInterval = 100_000_000 // 100ms, in nanoseconds (clock.Duration)
