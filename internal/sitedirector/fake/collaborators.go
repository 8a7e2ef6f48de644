package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// Stub collaborators for tests and dry runs: calls are recorded and responses
// are injectable.

type QueueProvider struct {
	Queues []domain.CandidateQueue
	Err    error
}

func (p *QueueProvider) CandidateQueues() ([]domain.CandidateQueue, error) {
	return p.Queues, p.Err
}

type Matcher struct {
	// GlobalResult answers queries without an endpoint scope.
	GlobalResult map[domain.TaskQueueID]domain.TaskQueueDemand
	GlobalErr    error
	// QueueResults answers endpoint-scoped queries by endpoint name.
	QueueResults map[string]map[domain.TaskQueueID]domain.TaskQueueDemand
	QueueErr     error

	ReceivedCriteria []domain.MatchCriteria
}

func (m *Matcher) MatchTaskQueues(criteria domain.MatchCriteria) (map[domain.TaskQueueID]domain.TaskQueueDemand, error) {
	m.ReceivedCriteria = append(m.ReceivedCriteria, criteria)
	if criteria.GridEndpoint == "" {
		return m.GlobalResult, m.GlobalErr
	}
	if m.QueueErr != nil {
		return nil, m.QueueErr
	}
	return m.QueueResults[criteria.GridEndpoint], nil
}

type RecordedStatus struct {
	Ref         string
	Status      domain.PilotStatus
	Destination string
	Site        string
	QueueName   string
}

type RecordedAssociation struct {
	Refs         []string
	TaskQueue    domain.TaskQueueID
	OwnerDN      string
	OwnerGroup   string
	OriginHost   string
	EndpointType domain.EndpointType
	Stamps       map[string]string
}

type PilotStore struct {
	WaitingCount int
	CountErr     error
	AddErr       error
	SetStatusErr error

	ReceivedCountFilters []domain.PilotFilter
	Associations         []RecordedAssociation
	Statuses             []RecordedStatus
}

func (s *PilotStore) CountPilots(filter domain.PilotFilter, updatedSince time.Time) (int, error) {
	s.ReceivedCountFilters = append(s.ReceivedCountFilters, filter)
	return s.WaitingCount, s.CountErr
}

func (s *PilotStore) AddPilotReferences(
	refs []string,
	taskQueue domain.TaskQueueID,
	ownerDN string,
	ownerGroup string,
	originHost string,
	endpointType domain.EndpointType,
	stamps map[string]string,
) error {
	if s.AddErr != nil {
		return s.AddErr
	}
	s.Associations = append(s.Associations, RecordedAssociation{
		Refs:         refs,
		TaskQueue:    taskQueue,
		OwnerDN:      ownerDN,
		OwnerGroup:   ownerGroup,
		OriginHost:   originHost,
		EndpointType: endpointType,
		Stamps:       stamps,
	})
	return nil
}

func (s *PilotStore) SetPilotStatus(ref string, status domain.PilotStatus, destination, reason, site, queueName string) error {
	if s.SetStatusErr != nil {
		return s.SetStatusErr
	}
	s.Statuses = append(s.Statuses, RecordedStatus{
		Ref:         ref,
		Status:      status,
		Destination: destination,
		Site:        site,
		QueueName:   queueName,
	})
	return nil
}

// RecordedPilots returns all pilot references recorded, keyed by task queue.
func (s *PilotStore) RecordedPilots() map[domain.TaskQueueID][]string {
	pilots := map[domain.TaskQueueID][]string{}
	for _, association := range s.Associations {
		pilots[association.TaskQueue] = append(pilots[association.TaskQueue], association.Refs...)
	}
	return pilots
}

type SiteMask struct {
	Sites []string
	Err   error
	Calls int
}

func (m *SiteMask) GetActiveSites() ([]string, error) {
	m.Calls++
	return m.Sites, m.Err
}

type credential struct {
	dn    string
	group string
}

func (c credential) Owner() (string, string) {
	return c.dn, c.group
}

type CredentialProvider struct {
	Err error

	IssuedValidities []time.Duration
}

func (p *CredentialProvider) GetCredential(ownerDN, ownerGroup string, validity time.Duration) (domain.Credential, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.IssuedValidities = append(p.IssuedValidities, validity)
	return credential{dn: ownerDN, group: ownerGroup}, nil
}

type SubmitCall struct {
	BundlePath string
	Chunk      int
	Processors int
}

// ComputeEndpoint is a stub endpoint minting one pilot reference per
// submitted pilot.
type ComputeEndpoint struct {
	Slots     int
	SlotsErr  error
	SubmitErr error

	mu          sync.Mutex
	SubmitCalls []SubmitCall
	Credentials []domain.Credential
}

func (e *ComputeEndpoint) SetCredential(cred domain.Credential, validity time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Credentials = append(e.Credentials, cred)
	return nil
}

func (e *ComputeEndpoint) AvailableSlots() (int, error) {
	return e.Slots, e.SlotsErr
}

func (e *ComputeEndpoint) Submit(bundlePath string, chunk int, processors int) (*domain.SubmitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.SubmitErr != nil {
		return nil, e.SubmitErr
	}
	e.SubmitCalls = append(e.SubmitCalls, SubmitCall{BundlePath: bundlePath, Chunk: chunk, Processors: processors})

	result := &domain.SubmitResult{Stamps: map[string]string{}}
	for i := 0; i < chunk; i++ {
		ref := fmt.Sprintf("pilot-%s", uuid.NewString())
		result.PilotRefs = append(result.PilotRefs, ref)
		result.Stamps[ref] = uuid.NewString()
	}
	return result, nil
}

// BundleBuilder avoids touching the filesystem; the returned path does not
// exist.
type BundleBuilder struct {
	Err        error
	ChunkLimit int

	BuiltCounts []int
}

func (b *BundleBuilder) BuildExecutable(queue *domain.Queue, count int, bundleProxy bool, httpProxy, execDir string) (*domain.Bundle, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	b.BuiltCounts = append(b.BuiltCounts, count)
	chunk := count
	if b.ChunkLimit > 0 && chunk > b.ChunkLimit {
		chunk = b.ChunkLimit
	}
	return &domain.Bundle{
		Path:  fmt.Sprintf("/nonexistent/pilot-wrapper-%s.sh", uuid.NewString()),
		Chunk: chunk,
	}, nil
}
