package matching

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
	"github.com/Ares7/DIRAC/internal/sitedirector/resources"
)

// wildcardCPUTime makes the global probe ignore CPU time constraints, it only
// establishes whether any demand exists at all.
const wildcardCPUTime = 9999999

// ProbeSettings are the community scoping fields shared by every matching
// service query this director issues.
type ProbeSettings struct {
	Setup       string
	Community   string
	OwnerGroups []string
	SubmitPools []string
}

// GlobalDemand is the result of the cheap per-cycle feasibility probe,
// together with the site sets derived from it.
type GlobalDemand struct {
	TaskQueues map[domain.TaskQueueID]domain.TaskQueueDemand
	// JobSites are sites with demand naming them explicitly.
	JobSites map[string]bool
	// AnySite is true when some demand accepts any site.
	AnySite bool
	// TestSites are sites whose demand is tied to a restricted job type.
	TestSites map[string]bool
	// TotalWaitingJobs over all matched task queues.
	TotalWaitingJobs int
	// WaitingPilots already submitted for the matched task queues.
	// Observability only, unless the global waiting limit is enforced.
	WaitingPilots int
}

func (d *GlobalDemand) Empty() bool {
	return len(d.TaskQueues) == 0
}

// DemandProbe queries the matching service for outstanding workload demand.
type DemandProbe struct {
	matcher  domain.Matcher
	pilots   domain.PilotStore
	settings ProbeSettings
}

func NewDemandProbe(matcher domain.Matcher, pilots domain.PilotStore, settings ProbeSettings) *DemandProbe {
	return &DemandProbe{
		matcher:  matcher,
		pilots:   pilots,
		settings: settings,
	}
}

// Global runs the once-per-cycle feasibility probe with the union of all
// catalog tags, sites and platforms.
func (p *DemandProbe) Global(catalog *resources.Catalog) (*GlobalDemand, error) {
	criteria := domain.MatchCriteria{
		Setup:       p.settings.Setup,
		CPUTime:     wildcardCPUTime,
		SubmitPools: p.settings.SubmitPools,
		Community:   p.settings.Community,
		OwnerGroups: p.settings.OwnerGroups,
		Platforms:   catalog.Platforms(),
		Sites:       catalog.Sites(),
		Tags:        catalog.AllTags(),
	}
	log.Debugf("Checking overall task queue availability with criteria %+v", criteria)

	taskQueues, err := p.matcher.MatchTaskQueues(criteria)
	if err != nil {
		return nil, errors.Wrap(err, "global demand probe failed")
	}

	demand := &GlobalDemand{
		TaskQueues: taskQueues,
		JobSites:   map[string]bool{},
		TestSites:  map[string]bool{},
	}
	for _, taskQueue := range taskQueues {
		if len(taskQueue.Sites) == 0 {
			demand.AnySite = true
		}
		for _, site := range taskQueue.Sites {
			if strings.EqualFold(site, "any") {
				demand.AnySite = true
				continue
			}
			demand.JobSites[site] = true
			if len(taskQueue.JobTypes) > 0 {
				demand.TestSites[site] = true
			}
		}
		demand.TotalWaitingJobs += taskQueue.Jobs
	}

	if !demand.Empty() {
		waiting, err := p.pilots.CountPilots(domain.PilotFilter{
			TaskQueueIDs: maps.Keys(taskQueues),
			Statuses:     domain.WaitingPilotStatuses,
		}, time.Time{})
		if err != nil {
			log.Errorf("Failed to count waiting pilots: %s", err)
		} else {
			demand.WaitingPilots = waiting
		}
		log.Infof("Total %d jobs in %d task queues with %d waiting pilots",
			demand.TotalWaitingJobs, len(taskQueues), demand.WaitingPilots)
	}
	return demand, nil
}

// Queue probes demand eligible for one queue, scoped to the queue's platform
// and tag set. Out-of-mask queues probe for test workload instead of naming
// their site.
func (p *DemandProbe) Queue(queue *domain.Queue, eligibility Eligibility) (map[domain.TaskQueueID]domain.TaskQueueDemand, error) {
	criteria := domain.MatchCriteria{
		Setup:        p.settings.Setup,
		CPUTime:      queue.CPUTimeLimit,
		SubmitPools:  p.settings.SubmitPools,
		Community:    p.settings.Community,
		OwnerGroups:  p.settings.OwnerGroups,
		Tags:         queue.Tags,
		GridEndpoint: queue.Key.Endpoint,
	}
	if queue.Platform != "" {
		criteria.Platforms = []string{queue.Platform}
	}
	if eligibility == TestOnly {
		criteria.JobType = "Test"
	} else {
		criteria.Sites = []string{queue.Key.Site}
	}

	taskQueues, err := p.matcher.MatchTaskQueues(criteria)
	if err != nil {
		return nil, errors.Wrapf(err, "demand probe for queue %s failed", queue.Key)
	}
	return taskQueues, nil
}

// CountWaitingPilots returns the number of pilots still waiting for the given
// task queues, considering only pilots whose status moved within the window.
// A zero window means no cutoff.
func (p *DemandProbe) CountWaitingPilots(taskQueueIDs []domain.TaskQueueID, window time.Duration) (int, error) {
	var cutoff time.Time
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}
	return p.pilots.CountPilots(domain.PilotFilter{
		TaskQueueIDs: taskQueueIDs,
		Statuses:     domain.WaitingPilotStatuses,
	}, cutoff)
}

// TagBucket groups the task queues of one demand mapping that require a given
// resource tag.
type TagBucket struct {
	Tag        string
	TaskQueues []domain.TaskQueueDemand
	TotalJobs  int
}

// Processors is the processor count pilots for this bucket must claim.
func (b *TagBucket) Processors() int {
	return resources.TagProcessors(b.Tag)
}

func (b *TagBucket) TaskQueueIDs() []domain.TaskQueueID {
	ids := make([]domain.TaskQueueID, 0, len(b.TaskQueues))
	for _, taskQueue := range b.TaskQueues {
		ids = append(ids, taskQueue.ID)
	}
	return ids
}

// PartitionByTag splits per-queue demand into one bucket per queue tag.
// Task queues carrying no tags are single-processor demand and are skipped.
// A task queue requiring several of the queue's tags lands in each of them.
func PartitionByTag(taskQueues map[domain.TaskQueueID]domain.TaskQueueDemand, queueTags []string) map[string]*TagBucket {
	tagSet := map[string]bool{}
	for _, tag := range queueTags {
		tagSet[tag] = true
	}

	buckets := map[string]*TagBucket{}
	for _, taskQueue := range taskQueues {
		for _, tag := range taskQueue.Tags {
			if !tagSet[tag] {
				continue
			}
			bucket, ok := buckets[tag]
			if !ok {
				bucket = &TagBucket{Tag: tag}
				buckets[tag] = bucket
			}
			bucket.TaskQueues = append(bucket.TaskQueues, taskQueue)
			bucket.TotalJobs += taskQueue.Jobs
		}
	}

	// Stable task queue order inside a bucket so repeated priority draws see
	// the same cumulative weights.
	for _, bucket := range buckets {
		sort.Slice(bucket.TaskQueues, func(i, j int) bool {
			return bucket.TaskQueues[i].ID < bucket.TaskQueues[j].ID
		})
	}
	return buckets
}
