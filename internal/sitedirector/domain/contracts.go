package domain

import "time"

// CandidateQueueProvider enumerates the queues this director is responsible
// for, from static configuration plus dynamic endpoint state.
type CandidateQueueProvider interface {
	CandidateQueues() ([]CandidateQueue, error)
}

// Matcher is the matching service. Both query modes are read-only and
// idempotent.
type Matcher interface {
	MatchTaskQueues(criteria MatchCriteria) (map[TaskQueueID]TaskQueueDemand, error)
}

// PilotStore owns all persistent pilot records.
type PilotStore interface {
	// CountPilots returns the number of pilots matching the filter whose
	// status was last updated after updatedSince. A zero updatedSince means
	// no cutoff.
	CountPilots(filter PilotFilter, updatedSince time.Time) (int, error)
	// AddPilotReferences records freshly submitted pilots and their
	// immutable association to a task queue.
	AddPilotReferences(
		refs []string,
		taskQueue TaskQueueID,
		ownerDN string,
		ownerGroup string,
		originHost string,
		endpointType EndpointType,
		stamps map[string]string,
	) error
	SetPilotStatus(ref string, status PilotStatus, destination, reason, site, queueName string) error
}

// SiteMaskProvider reports which sites are cleared for production workload.
type SiteMaskProvider interface {
	GetActiveSites() ([]string, error)
}

// Credential is an opaque, time-bounded proxy handle issued by the credential
// provider and consumed by compute endpoints.
type Credential interface {
	Owner() (dn string, group string)
}

type CredentialProvider interface {
	GetCredential(ownerDN, ownerGroup string, validity time.Duration) (Credential, error)
}

// SubmitResult is what a compute endpoint returns for one submission chunk.
// Stamps disambiguate duplicate references from the same batch and may be
// empty for endpoint types that do not stamp.
type SubmitResult struct {
	PilotRefs []string
	Stamps    map[string]string
}

// ComputeEndpoint is the per-queue submission capability.
type ComputeEndpoint interface {
	SetCredential(credential Credential, validity time.Duration) error
	AvailableSlots() (int, error)
	// Submit submits up to chunk pilots running the given bundle, each
	// claiming the given processor count (WholeNodeProcessors for a whole
	// node).
	Submit(bundlePath string, chunk int, processors int) (*SubmitResult, error)
}

// Bundle is a built pilot executable plus the chunk size the builder actually
// packed, which may be smaller than requested.
type Bundle struct {
	Path  string
	Chunk int
}

type BundleBuilder interface {
	BuildExecutable(queue *Queue, count int, bundleProxy bool, httpProxy, execDir string) (*Bundle, error)
}
