package mqtt

import "fmt"

// Topic constants for the telemetry namespace
const (
	// Scan/fetch progress events, one subtopic per scan ID
	TopicProgressBase = "telemetry/progress"
	TopicProgressAll  = "telemetry/progress/+"

	// Registry update announcements from the discovery agent
	TopicRegistryUpdates = "telemetry/registry/updates"
)

// ProgressTopic constructs the progress topic for a specific scan
// Pattern: telemetry/progress/{scan_id}
func ProgressTopic(scanID string) string {
	return fmt.Sprintf("%s/%s", TopicProgressBase, scanID)
}
