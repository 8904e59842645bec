package models

// ExecutionGroup partitions adapters for scheduling. All browser-group
// adapters must reach a terminal state before any network-group adapter
// starts; mixing the two in flight has crashed the process before.
type ExecutionGroup string

const (
	GroupBrowser ExecutionGroup = "browser"
	GroupNetwork ExecutionGroup = "network"
)

// PlatformDescriptor is the static metadata registered per platform.
type PlatformDescriptor struct {
	ID      string         `json:"name"`
	Group   ExecutionGroup `json:"group"`
	Scale   float64        `json:"rating_scale"`
	Order   int            `json:"-"` // display tie-break only, never correctness
	Foreign bool           `json:"foreign"`
}
