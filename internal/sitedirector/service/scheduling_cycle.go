package service

import (
	"math/rand"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Ares7/DIRAC/internal/sitedirector/configuration"
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
	"github.com/Ares7/DIRAC/internal/sitedirector/matching"
	"github.com/Ares7/DIRAC/internal/sitedirector/metrics"
	"github.com/Ares7/DIRAC/internal/sitedirector/resources"
	"github.com/Ares7/DIRAC/internal/sitedirector/submit"
)

const siteMaskFetchAttempts = 3

// SchedulingCycle matches outstanding multi-processor demand against eligible
// queues and submits pilots, once per invocation. Queue processing within a
// cycle is sequential; the slot and failure counters are owned by the single
// cycle execution.
type SchedulingCycle struct {
	config    *configuration.SiteDirectorConfiguration
	provider  domain.CandidateQueueProvider
	probe     *matching.DemandProbe
	siteMask  domain.SiteMaskProvider
	submitter *submit.Submitter
	backoff   *BackoffPolicy
	rand      *rand.Rand
}

func NewSchedulingCycle(
	config *configuration.SiteDirectorConfiguration,
	provider domain.CandidateQueueProvider,
	probe *matching.DemandProbe,
	siteMask domain.SiteMaskProvider,
	submitter *submit.Submitter,
	backoff *BackoffPolicy,
	rand *rand.Rand,
) *SchedulingCycle {
	return &SchedulingCycle{
		config:    config,
		provider:  provider,
		probe:     probe,
		siteMask:  siteMask,
		submitter: submitter,
		backoff:   backoff,
		rand:      rand,
	}
}

// Run executes one scheduling cycle and logs the outcome. Fatal-to-cycle
// errors abort this invocation only; the next one starts fresh.
func (s *SchedulingCycle) Run() {
	if err := s.runCycle(); err != nil {
		log.Errorf("Scheduling cycle aborted: %s", err)
	}
}

func (s *SchedulingCycle) runCycle() error {
	catalog, err := resources.BuildCatalog(s.provider)
	if err != nil {
		return err
	}
	if len(catalog.Queues) == 0 {
		log.Info("No multi-processor queues eligible this cycle")
		return nil
	}

	demand, err := s.probe.Global(catalog)
	if err != nil {
		return err
	}
	if demand.Empty() {
		log.Info("No waiting jobs suitable for this director")
		return nil
	}
	metrics.WaitingJobs.Set(float64(demand.TotalWaitingJobs))

	if s.config.Pilot.EnforceGlobalWaitingLimit && demand.WaitingPilots >= demand.TotalWaitingJobs {
		log.Info("No more pilots to be submitted in this cycle, waiting pilots cover all waiting jobs")
		return nil
	}

	activeSites, err := s.fetchSiteMask()
	if err != nil {
		return errors.Wrap(err, "can not get the site mask")
	}
	eligibility := matching.NewSiteEligibility(activeSites, demand)

	// Randomized order so queues late in a fixed iteration order are not
	// systematically starved.
	queues := make([]*domain.Queue, len(catalog.Queues))
	copy(queues, catalog.Queues)
	s.rand.Shuffle(len(queues), func(i, j int) {
		queues[i], queues[j] = queues[j], queues[i]
	})

	accountant := submit.NewSlotAccountant()
	totalSubmitted := 0
	matchedQueues := 0
	for _, queue := range queues {
		submitted, matched := s.processQueue(queue, eligibility, accountant)
		totalSubmitted += submitted
		if matched {
			matchedQueues++
		}
	}

	metrics.QueuesMatched.Set(float64(matchedQueues))
	log.Infof("%d pilots submitted in total in this cycle, %d matched queues", totalSubmitted, matchedQueues)
	return nil
}

// processQueue runs the backoff gate, the site gate and the per-queue demand
// probe, then drives submission for each tag bucket. Returns the number of
// pilots recorded and whether the queue had eligible demand.
func (s *SchedulingCycle) processQueue(
	queue *domain.Queue,
	eligibility *matching.SiteEligibility,
	accountant *submit.SlotAccountant,
) (int, bool) {
	if skip, remaining := s.backoff.ShouldSkip(queue.Key); skip {
		log.Warnf("%s queue failed recently, skipping %d cycles", queue.Key, remaining)
		return 0, false
	}

	siteClass := eligibility.Classify(queue.Key.Site)
	if siteClass == matching.Skip {
		log.Debugf("Skipping queue %s: no workload expected or site not usable", queue.Key)
		return 0, false
	}

	if queue.CPUTimeLimit == 0 {
		log.Warnf("CPU time limit is not specified for queue %s, skipping", queue.Key)
		return 0, false
	}
	if queue.CPUTimeLimit > s.config.Pilot.MaxQueueLength {
		queue.CPUTimeLimit = s.config.Pilot.MaxQueueLength
	}

	taskQueues, err := s.probe.Queue(queue, siteClass)
	if err != nil {
		log.Errorf("Could not retrieve task queues for %s: %s", queue.Key, err)
		s.backoff.RecordFailure(queue.Key)
		return 0, false
	}
	if len(taskQueues) == 0 {
		log.Debugf("No matching task queues found for %s", queue.Key)
		return 0, false
	}

	buckets := matching.PartitionByTag(taskQueues, queue.Tags)
	if len(buckets) == 0 {
		log.Debugf("Task queues for %s carry no multi-processor tags", queue.Key)
		return 0, false
	}

	totalJobs := 0
	for _, taskQueue := range taskQueues {
		totalJobs += taskQueue.Jobs
	}
	log.Debugf("%d job(s) from %d task queue(s) are eligible for queue %s", totalJobs, len(taskQueues), queue.Key)

	queueSubmitted := 0
	queueRecorded := 0
	for _, bucket := range buckets {
		log.Debugf("Trying to submit pilots for tag %s (task queues %v)", bucket.Tag, bucket.TaskQueueIDs())

		waitingPilots := s.countWaitingPilots(bucket)
		if waitingPilots >= bucket.TotalJobs {
			log.Debugf("%d waiting pilots already cover the available jobs for tag %s", waitingPilots, bucket.Tag)
			continue
		}

		submitted, recorded, err := s.submitter.SubmitBucket(submit.BucketSubmission{
			Queue:            queue,
			Bucket:           bucket,
			WaitingPilots:    waitingPilots,
			AlreadySubmitted: queueSubmitted,
		}, accountant)
		queueSubmitted += submitted
		queueRecorded += recorded
		metrics.PilotsSubmitted.Add(float64(recorded))

		if err != nil {
			s.backoff.RecordFailure(queue.Key)
			metrics.SubmissionFailures.Inc()
			if errors.Is(err, submit.ErrSubmission) {
				// Only this tag bucket is abandoned.
				continue
			}
			log.Errorf("Giving up on queue %s for this cycle: %s", queue.Key, err)
			break
		}
	}

	if queueRecorded > 0 {
		s.backoff.RecordSuccess(queue.Key)
	}
	return queueRecorded, true
}

func (s *SchedulingCycle) countWaitingPilots(bucket *matching.TagBucket) int {
	if !s.config.Pilot.PilotWaitingFlag {
		return 0
	}
	waiting, err := s.probe.CountWaitingPilots(bucket.TaskQueueIDs(), s.config.Pilot.PilotWaitingTime)
	if err != nil {
		log.Errorf("Failed to get number of waiting pilots: %s", err)
		return 0
	}
	log.Debugf("Waiting pilots for task queues %v: %d", bucket.TaskQueueIDs(), waiting)
	return waiting
}

func (s *SchedulingCycle) fetchSiteMask() ([]string, error) {
	var activeSites []string
	err := retry.Do(
		func() error {
			sites, err := s.siteMask.GetActiveSites()
			if err != nil {
				return err
			}
			activeSites = sites
			return nil
		},
		retry.Attempts(siteMaskFetchAttempts),
		retry.LastErrorOnly(true),
	)
	return activeSites, err
}
