package sitedirector

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Ares7/DIRAC/internal/common/task"
	"github.com/Ares7/DIRAC/internal/common/util"
	"github.com/Ares7/DIRAC/internal/sitedirector/allocation"
	"github.com/Ares7/DIRAC/internal/sitedirector/configuration"
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
	"github.com/Ares7/DIRAC/internal/sitedirector/matching"
	"github.com/Ares7/DIRAC/internal/sitedirector/metrics"
	"github.com/Ares7/DIRAC/internal/sitedirector/service"
	"github.com/Ares7/DIRAC/internal/sitedirector/submit"
)

// Collaborators bundles the external capability contracts the director
// consumes. They are constructed by the caller; the director owns no
// persistent state of its own.
type Collaborators struct {
	CandidateQueues domain.CandidateQueueProvider
	Matcher         domain.Matcher
	PilotStore      domain.PilotStore
	SiteMask        domain.SiteMaskProvider
	Credentials     domain.CredentialProvider
	Bundles         domain.BundleBuilder
}

// StartUp wires the scheduling cycle onto a background task manager and
// starts it. The returned function stops the director.
func StartUp(config configuration.SiteDirectorConfiguration, collaborators Collaborators) (shutdown func()) {
	if err := configuration.ValidateSiteDirectorConfiguration(config); err != nil {
		log.Errorf("Invalid configuration: %s", err)
		os.Exit(-1)
	}

	originHost, err := os.Hostname()
	if err != nil {
		log.Warnf("Could not determine hostname: %s", err)
		originHost = "localhost"
	}

	random := util.NewThreadsafeRand(time.Now().UnixNano())

	bundles := collaborators.Bundles
	if bundles == nil {
		bundles = submit.NewScriptBundleBuilder(config.Pilot.BundleWorkDir)
	}

	probe := matching.NewDemandProbe(
		collaborators.Matcher,
		collaborators.PilotStore,
		matching.ProbeSettings{
			Setup:       config.Application.Setup,
			Community:   config.Application.Community,
			OwnerGroups: config.Application.OwnerGroups,
			SubmitPools: config.Application.SubmitPools,
		})

	submitter := submit.NewSubmitter(
		submit.NewCredentialCache(collaborators.Credentials),
		bundles,
		collaborators.PilotStore,
		allocation.NewAllocator(random),
		config.Pilot.OwnerDN,
		config.Pilot.OwnerGroup,
		originHost,
		config.Pilot.MaxPilotsToSubmit,
	)

	backoff := service.NewBackoffPolicy(config.Pilot.FailedQueueCycleFactor, config.Pilot.ResetFailuresOnSuccess)

	cycle := service.NewSchedulingCycle(
		&config,
		collaborators.CandidateQueues,
		probe,
		collaborators.SiteMask,
		submitter,
		backoff,
		random,
	)

	taskManager := task.NewBackgroundTaskManager(metrics.SiteDirectorMetricsPrefix)
	taskManager.Register(cycle.Run, config.Task.SchedulingInterval, "scheduling_cycle")

	return func() {
		if taskManager.StopAll(10 * time.Second) {
			log.Warnf("Graceful shutdown timed out")
		}
		log.Infof("Shutdown complete")
	}
}
