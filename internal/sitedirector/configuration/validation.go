package configuration

import "fmt"

func ValidateSiteDirectorConfiguration(config SiteDirectorConfiguration) error {
	if config.Pilot.FailedQueueCycleFactor <= 0 {
		return fmt.Errorf("pilot.failedQueueCycleFactor must be positive, got %d", config.Pilot.FailedQueueCycleFactor)
	}
	if config.Pilot.MaxPilotsToSubmit <= 0 {
		return fmt.Errorf("pilot.maxPilotsToSubmit must be positive, got %d", config.Pilot.MaxPilotsToSubmit)
	}
	if config.Pilot.MaxQueueLength <= 0 {
		return fmt.Errorf("pilot.maxQueueLength must be positive, got %d", config.Pilot.MaxQueueLength)
	}
	if config.Pilot.OwnerDN == "" || config.Pilot.OwnerGroup == "" {
		return fmt.Errorf("pilot.ownerDN and pilot.ownerGroup must be set")
	}
	if config.Task.SchedulingInterval <= 0 {
		return fmt.Errorf("task.schedulingInterval must be positive, got %s", config.Task.SchedulingInterval)
	}
	return nil
}
