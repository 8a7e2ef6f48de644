package resources

import (
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// ErrResourceDiscovery marks a failed candidate queue enumeration. This is
// fatal for the scheduling cycle.
var ErrResourceDiscovery = errors.New("resource discovery failed")

// Catalog is the per-cycle set of eligible queues with derived tags.
type Catalog struct {
	Queues []*domain.Queue
}

// BuildCatalog enumerates candidate queues, derives each queue's resource
// tags and drops queues that cannot run multi-processor or whole-node pilots.
func BuildCatalog(provider domain.CandidateQueueProvider) (*Catalog, error) {
	candidates, err := provider.CandidateQueues()
	if err != nil {
		return nil, errors.Wrapf(ErrResourceDiscovery, "candidate queue enumeration failed: %s", err)
	}

	catalog := &Catalog{}
	for _, candidate := range candidates {
		tags := DeriveTags(effectiveMaxProcessors(candidate), effectiveWholeNode(candidate))
		if !QualifiesForMultiProcessor(tags) {
			log.Debugf("Queue %s has no multi-processor capability, leaving it to the baseline director", candidate.Key)
			continue
		}
		catalog.Queues = append(catalog.Queues, &domain.Queue{
			Key:          candidate.Key,
			Endpoint:     candidate.Endpoint,
			EndpointType: candidate.EndpointType,
			Platform:     candidate.Platform,
			CPUTimeLimit: cpuTimeLimit(candidate),
			Parameters:   candidate.Parameters,
			Tags:         tags,
		})
	}
	log.Infof("Catalog built with %d multi-processor queue(s) out of %d candidate(s)", len(catalog.Queues), len(candidates))
	return catalog, nil
}

// AllTags is the union of tags over all catalog queues.
func (c *Catalog) AllTags() []string {
	tagSet := map[string]bool{}
	for _, queue := range c.Queues {
		for _, tag := range queue.Tags {
			tagSet[tag] = true
		}
	}
	return maps.Keys(tagSet)
}

// Sites are the distinct sites owning catalog queues.
func (c *Catalog) Sites() []string {
	siteSet := map[string]bool{}
	for _, queue := range c.Queues {
		siteSet[queue.Key.Site] = true
	}
	return maps.Keys(siteSet)
}

// Platforms are the distinct platforms the catalog queues run.
func (c *Catalog) Platforms() []string {
	platformSet := map[string]bool{}
	for _, queue := range c.Queues {
		if queue.Platform != "" {
			platformSet[queue.Platform] = true
		}
	}
	return maps.Keys(platformSet)
}

func cpuTimeLimit(candidate domain.CandidateQueue) int {
	declared, ok := candidate.Parameters[domain.ParamCPUTime]
	if !ok {
		return 0
	}
	limit, err := strconv.Atoi(declared)
	if err != nil {
		log.Warnf("Queue %s declares unparsable CPU time limit %q", candidate.Key, declared)
		return 0
	}
	return limit
}
