package configuration

import (
	"time"
)

type ApplicationConfiguration struct {
	// Setup is the deployment setup identifier sent with every matching
	// service query.
	Setup       string
	Community   string
	OwnerGroups []string
	SubmitPools []string
}

type PilotConfiguration struct {
	// OwnerDN and OwnerGroup form the identity pilots run under.
	OwnerDN    string
	OwnerGroup string
	// MaxPilotsToSubmit is the per-queue submission ceiling for one cycle.
	MaxPilotsToSubmit int
	// MaxQueueLength clamps a queue's declared CPU time limit, in seconds.
	MaxQueueLength int
	// FailedQueueCycleFactor is the number of cycles a failed queue waits
	// between retries.
	FailedQueueCycleFactor int
	// PilotWaitingFlag enables counting already-waiting pilots per tag
	// bucket before computing the submission budget.
	PilotWaitingFlag bool
	// PilotWaitingTime bounds how far back waiting pilots are counted.
	PilotWaitingTime time.Duration
	// EnforceGlobalWaitingLimit stops a cycle early when waiting pilots
	// already cover all waiting jobs. The check is always computed and
	// logged; enforcement changes submission volume and is off by default.
	EnforceGlobalWaitingLimit bool
	// ResetFailuresOnSuccess zeroes a queue's failure counter after a cycle
	// with at least one successful submission to it.
	ResetFailuresOnSuccess bool
	// BundleWorkDir is where pilot wrapper bundles are staged before
	// submission. Empty means the system temp directory.
	BundleWorkDir string
}

type TaskConfiguration struct {
	SchedulingInterval time.Duration
}

type SiteDirectorConfiguration struct {
	MetricsPort uint16
	Application ApplicationConfiguration
	Pilot       PilotConfiguration
	Task        TaskConfiguration
}
