package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() SiteDirectorConfiguration {
	return SiteDirectorConfiguration{
		Application: ApplicationConfiguration{
			Setup:     "Production",
			Community: "vo.example.org",
		},
		Pilot: PilotConfiguration{
			OwnerDN:                "/DC=org/DC=example/CN=pilot",
			OwnerGroup:             "pilot",
			MaxPilotsToSubmit:      100,
			MaxQueueLength:         259200,
			FailedQueueCycleFactor: 10,
		},
		Task: TaskConfiguration{
			SchedulingInterval: 2 * time.Minute,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, ValidateSiteDirectorConfiguration(validConfig()))
}

func TestValidate_RejectsNonPositiveCycleFactor(t *testing.T) {
	config := validConfig()
	config.Pilot.FailedQueueCycleFactor = 0
	assert.Error(t, ValidateSiteDirectorConfiguration(config))
}

func TestValidate_RejectsNonPositiveSubmissionCeiling(t *testing.T) {
	config := validConfig()
	config.Pilot.MaxPilotsToSubmit = -1
	assert.Error(t, ValidateSiteDirectorConfiguration(config))
}

func TestValidate_RejectsNonPositiveQueueLength(t *testing.T) {
	config := validConfig()
	config.Pilot.MaxQueueLength = 0
	assert.Error(t, ValidateSiteDirectorConfiguration(config))
}

func TestValidate_RejectsMissingPilotIdentity(t *testing.T) {
	config := validConfig()
	config.Pilot.OwnerDN = ""
	assert.Error(t, ValidateSiteDirectorConfiguration(config))

	config = validConfig()
	config.Pilot.OwnerGroup = ""
	assert.Error(t, ValidateSiteDirectorConfiguration(config))
}

func TestValidate_RejectsNonPositiveSchedulingInterval(t *testing.T) {
	config := validConfig()
	config.Task.SchedulingInterval = 0
	assert.Error(t, ValidateSiteDirectorConfiguration(config))
}
