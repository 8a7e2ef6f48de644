package submit

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Ares7/DIRAC/internal/sitedirector/allocation"
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
	"github.com/Ares7/DIRAC/internal/sitedirector/matching"
)

// ErrSubmission marks a failed compute endpoint submission. The remaining
// budget of the tag bucket is abandoned but the cycle moves on.
var ErrSubmission = errors.New("pilot submission failed")

// credentialGracePeriod extends a pilot credential beyond the queue CPU time
// limit so a pilot never outlives its proxy.
const credentialGracePeriod = 24 * time.Hour

// Submitter drives pilot submission for one tag bucket at a time.
type Submitter struct {
	credentials *CredentialCache
	bundles     domain.BundleBuilder
	store       domain.PilotStore
	allocator   *allocation.Allocator

	ownerDN           string
	ownerGroup        string
	originHost        string
	maxPilotsToSubmit int
}

func NewSubmitter(
	credentials *CredentialCache,
	bundles domain.BundleBuilder,
	store domain.PilotStore,
	allocator *allocation.Allocator,
	ownerDN string,
	ownerGroup string,
	originHost string,
	maxPilotsToSubmit int,
) *Submitter {
	return &Submitter{
		credentials:       credentials,
		bundles:           bundles,
		store:             store,
		allocator:         allocator,
		ownerDN:           ownerDN,
		ownerGroup:        ownerGroup,
		originHost:        originHost,
		maxPilotsToSubmit: maxPilotsToSubmit,
	}
}

// BucketSubmission is one unit of submission work: a queue, one of its tag
// buckets, and the accounting state accumulated for the queue this cycle.
type BucketSubmission struct {
	Queue            *domain.Queue
	Bucket           *matching.TagBucket
	WaitingPilots    int
	AlreadySubmitted int
}

// SubmitBucket submits pilots for one tag bucket until its budget or the
// demand is exhausted. It returns the chunk total drawn from the per-queue
// ceiling and the number of pilot identities recorded. A returned error is
// fatal for the rest of this queue's cycle unless it is ErrSubmission, which
// only abandons this bucket.
func (s *Submitter) SubmitBucket(request BucketSubmission, accountant *SlotAccountant) (submitted int, recorded int, err error) {
	queue := request.Queue
	bucket := request.Bucket

	totalSlots := accountant.Available(queue)
	if totalSlots == 0 {
		log.Debugf("%s: no slots available", queue.Key)
		return 0, 0, nil
	}

	pilotsToSubmit := Budget(totalSlots, bucket.TotalJobs, request.WaitingPilots, s.maxPilotsToSubmit-request.AlreadySubmitted)
	log.Infof("%s: Slots=%d, TQ jobs=%d, Pilots: waiting %d, to submit=%d",
		queue.Key, totalSlots, bucket.TotalJobs, request.WaitingPilots, pilotsToSubmit)
	if pilotsToSubmit == 0 {
		return 0, 0, nil
	}

	if err := s.attachCredential(queue); err != nil {
		return 0, 0, err
	}

	for pilotsToSubmit > 0 {
		log.Infof("Going to submit %d pilots to %s for tag %s", pilotsToSubmit, queue.Key, bucket.Tag)

		bundle, err := s.bundles.BuildExecutable(
			queue,
			pilotsToSubmit,
			parameterDeclared(queue.Parameter(domain.ParamBundleProxy)),
			queue.Parameter(domain.ParamHttpProxy),
			queue.Parameter(domain.ParamJobExecDir),
		)
		if err != nil {
			return submitted, recorded, errors.Wrapf(err, "failed to build pilot bundle for queue %s", queue.Key)
		}

		result, submitErr := queue.Endpoint.Submit(bundle.Path, bundle.Chunk, bucket.Processors())
		// Endpoints that pick the bundle up asynchronously need it to
		// outlive the call.
		if !queue.EndpointType.DefersBundlePickup() {
			if removeErr := os.Remove(bundle.Path); removeErr != nil && !os.IsNotExist(removeErr) {
				log.Warnf("Failed to remove pilot bundle %s: %s", bundle.Path, removeErr)
			}
		}
		if submitErr != nil {
			log.Errorf("Failed submission to queue %s: %s", queue.Key, submitErr)
			return submitted, recorded, errors.Wrapf(ErrSubmission, "queue %s: %s", queue.Key, submitErr)
		}

		pilotsToSubmit -= bundle.Chunk
		submitted += bundle.Chunk
		recorded += len(result.PilotRefs)
		accountant.Consume(queue.Key, len(result.PilotRefs))
		log.Infof("Submitted %d pilots to %s", len(result.PilotRefs), queue.Key)

		s.recordPilots(queue, bucket, result)
	}

	return submitted, recorded, nil
}

func (s *Submitter) attachCredential(queue *domain.Queue) error {
	validity := time.Duration(queue.CPUTimeLimit)*time.Second + credentialGracePeriod
	log.Debugf("Getting pilot credential for %s@%s valid for %s", s.ownerDN, s.ownerGroup, validity)

	credential, err := s.credentials.Get(s.ownerDN, s.ownerGroup, validity)
	if err != nil {
		return err
	}
	if err := queue.Endpoint.SetCredential(credential, validity-time.Minute); err != nil {
		return errors.Wrapf(err, "failed to attach credential to queue %s", queue.Key)
	}
	return nil
}

// recordPilots assigns each returned pilot identity to a task queue and
// persists the association and the Submitted status. Bookkeeping failures are
// logged only; the submission itself already happened.
func (s *Submitter) recordPilots(queue *domain.Queue, bucket *matching.TagBucket, result *domain.SubmitResult) {
	var bookkeepingErrors *multierror.Error

	for taskQueueID, refs := range s.allocator.Assign(result.PilotRefs, bucket.TaskQueues) {
		err := s.store.AddPilotReferences(
			refs,
			taskQueueID,
			s.ownerDN,
			s.ownerGroup,
			s.originHost,
			queue.EndpointType,
			result.Stamps,
		)
		if err != nil {
			bookkeepingErrors = multierror.Append(bookkeepingErrors,
				errors.Wrapf(err, "failed to add pilots to task queue %d", taskQueueID))
			continue
		}
		for _, ref := range refs {
			err := s.store.SetPilotStatus(
				ref,
				domain.PilotSubmitted,
				queue.Key.Endpoint,
				"Successfully submitted by the site director",
				queue.Key.Site,
				queue.Key.Name,
			)
			if err != nil {
				bookkeepingErrors = multierror.Append(bookkeepingErrors,
					errors.Wrapf(err, "failed to set status for pilot %s", ref))
			}
		}
	}

	if err := bookkeepingErrors.ErrorOrNil(); err != nil {
		log.Errorf("Pilot bookkeeping for queue %s incomplete: %s", queue.Key, err)
	}
}

func parameterDeclared(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "true":
		return true
	}
	return false
}
