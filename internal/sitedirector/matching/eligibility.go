package matching

import (
	"github.com/Ares7/DIRAC/internal/common/util"
)

// Eligibility classifies a site for pilot submission in the current cycle.
type Eligibility int

const (
	// Skip: no workload expected for the site, or the site has neither
	// production clearance nor pending test demand.
	Skip Eligibility = iota
	// Production: the site is in the active production mask.
	Production
	// TestOnly: the site is outside the mask but has demand tied to a
	// restricted job type, so test workload may still be submitted.
	TestOnly
)

// SiteEligibility applies the production mask and the site sets derived from
// the global probe.
type SiteEligibility struct {
	mask   map[string]bool
	demand *GlobalDemand
}

func NewSiteEligibility(activeSites []string, demand *GlobalDemand) *SiteEligibility {
	return &SiteEligibility{
		mask:   util.StringListToSet(activeSites),
		demand: demand,
	}
}

func (e *SiteEligibility) Classify(site string) Eligibility {
	if !e.demand.AnySite && !e.demand.JobSites[site] {
		return Skip
	}
	if e.mask[site] {
		return Production
	}
	if e.demand.TestSites[site] {
		return TestOnly
	}
	return Skip
}
