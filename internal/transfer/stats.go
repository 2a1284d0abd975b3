package transfer

import "time"

// Step identifies one phase of a run.
type Step string

// Run phases in execution order.
const (
	StepClear       Step = "clear"
	StepServer      Step = "server"
	StepBranding    Step = "branding"
	StepRoles       Step = "roles"
	StepCategories  Step = "categories"
	StepChannels    Step = "channels"
	StepPermissions Step = "permissions"
	StepEmojis      Step = "emojis"
	StepCustom      Step = "custom"
)

// Steps lists all phases in execution order.
var Steps = []Step{
	StepClear,
	StepServer,
	StepBranding,
	StepRoles,
	StepCategories,
	StepChannels,
	StepPermissions,
	StepEmojis,
	StepCustom,
}

// Status is the lifecycle state of a step.
type Status string

// Step lifecycle states.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// StepStats counts item outcomes within one step.
type StepStats struct {
	Status  Status   `json:"status"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Report is the outcome of a run. The maps are keyed by source identifier
// and hold the identifiers created on the target.
type Report struct {
	ServerID    string              `json:"serverId"`
	RoleMap     map[string]string   `json:"roleMap"`
	ChannelMap  map[string]string   `json:"channelMap"`
	CategoryMap map[string]string   `json:"categoryMap"`
	Stats       map[Step]*StepStats `json:"stats"`
	Clear       *ClearSummary       `json:"clear,omitempty"`
	Duration    time.Duration       `json:"duration"`
	Aborted     bool                `json:"aborted"`
}

// Observer receives step transitions as a run progresses. It is invoked from
// the running goroutine; implementations must be fast and non-blocking.
type Observer func(step Step, status Status, stats StepStats)
