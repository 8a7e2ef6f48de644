package domain

import "fmt"

// WholeNodeProcessors is the sentinel processor count passed to a compute
// endpoint when a pilot should claim every processor of its node.
const WholeNodeProcessors = -1

// EndpointType identifies the grid middleware flavour behind a queue.
type EndpointType string

const (
	EndpointHTCondor EndpointType = "HTCondorCE"
	EndpointARC      EndpointType = "ARC"
	EndpointCREAM    EndpointType = "CREAM"
	EndpointSSH      EndpointType = "SSH"
)

// DefersBundlePickup reports whether the endpoint retrieves the submission
// bundle asynchronously, in which case the bundle must outlive the submit call
// and is not removed immediately after submission.
func (t EndpointType) DefersBundlePickup() bool {
	return t == EndpointHTCondor
}

type PilotStatus string

const (
	PilotSubmitted PilotStatus = "Submitted"
	PilotWaiting   PilotStatus = "Waiting"
	PilotReady     PilotStatus = "Ready"
	PilotScheduled PilotStatus = "Scheduled"
	PilotQueued    PilotStatus = "Queued"
	PilotRunning   PilotStatus = "Running"
	PilotDone      PilotStatus = "Done"
	PilotFailed    PilotStatus = "Failed"
	PilotAborted   PilotStatus = "Aborted"
)

// WaitingPilotStatuses are the states in which a pilot is counted as still
// waiting to pick up work.
var WaitingPilotStatuses = []PilotStatus{
	PilotSubmitted,
	PilotWaiting,
	PilotReady,
	PilotScheduled,
	PilotQueued,
}

// QueueKey uniquely identifies a grid queue within the catalog.
type QueueKey struct {
	Site     string
	Endpoint string
	Name     string
}

func (k QueueKey) String() string {
	return fmt.Sprintf("%s@%s/%s", k.Name, k.Endpoint, k.Site)
}

// Queue parameter names an operator may set to override endpoint-reported
// capabilities or to steer bundle construction.
const (
	ParamMaxProcessors = "MaxProcessors"
	ParamWholeNode     = "WholeNode"
	ParamCPUTime       = "CPUTime"
	ParamBundleProxy   = "BundleProxy"
	ParamJobExecDir    = "JobExecDir"
	ParamHttpProxy     = "HttpProxy"
)

// Queue is one eligible grid submission endpoint for the current scheduling
// cycle, with its capability tags already derived.
type Queue struct {
	Key          QueueKey
	Endpoint     ComputeEndpoint
	EndpointType EndpointType
	Platform     string
	// CPUTimeLimit is the queue wall ceiling in seconds, 0 when unspecified.
	CPUTimeLimit int
	Parameters   map[string]string
	Tags         []string
}

func (q *Queue) Parameter(name string) string {
	return q.Parameters[name]
}

// CandidateQueue is the raw queue description returned by the candidate queue
// provider, before tag derivation and eligibility filtering.
type CandidateQueue struct {
	Key          QueueKey
	Endpoint     ComputeEndpoint
	EndpointType EndpointType
	Platform     string
	// MaxProcessors as reported by the endpoint itself.
	MaxProcessors int
	// WholeNode as reported by the endpoint itself.
	WholeNode  bool
	Parameters map[string]string
}

type TaskQueueID int64

// TaskQueueDemand is a read-only view of one demand bucket held by the
// matching service.
type TaskQueueDemand struct {
	ID       TaskQueueID
	Jobs     int
	Priority float64
	Tags     []string
	Sites    []string
	JobTypes []string
}

// MatchCriteria describes one matching service query. Zero-valued fields are
// not part of the query.
type MatchCriteria struct {
	Setup        string
	CPUTime      int
	SubmitPools  []string
	Community    string
	OwnerGroups  []string
	Platforms    []string
	Sites        []string
	Tags         []string
	JobType      string
	GridEndpoint string
}

// PilotFilter selects pilot records in the pilot store.
type PilotFilter struct {
	TaskQueueIDs []TaskQueueID
	Statuses     []PilotStatus
}
