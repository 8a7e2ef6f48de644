package submit

import (
	log "github.com/sirupsen/logrus"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// SlotAccountant tracks remaining endpoint capacity per queue within one
// scheduling cycle. A queue's endpoint is asked once per cycle; submissions
// then draw the in-memory count down so later tag buckets of the same queue
// cannot over-draw it.
type SlotAccountant struct {
	available map[domain.QueueKey]int
	queried   map[domain.QueueKey]bool
}

func NewSlotAccountant() *SlotAccountant {
	return &SlotAccountant{
		available: map[domain.QueueKey]int{},
		queried:   map[domain.QueueKey]bool{},
	}
}

// Available returns the remaining slot count for the queue, querying the
// endpoint on first use. A failed capacity query counts as zero slots.
func (s *SlotAccountant) Available(queue *domain.Queue) int {
	if s.queried[queue.Key] {
		return s.available[queue.Key]
	}
	s.queried[queue.Key] = true

	slots, err := queue.Endpoint.AvailableSlots()
	if err != nil {
		log.Errorf("Failed to get available slots for queue %s: %s", queue.Key, err)
		slots = 0
	}
	if slots < 0 {
		slots = 0
	}
	s.available[queue.Key] = slots
	return slots
}

// Consume draws submitted pilots from the queue's remaining capacity.
func (s *SlotAccountant) Consume(key domain.QueueKey, pilots int) {
	s.available[key] -= pilots
	if s.available[key] < 0 {
		s.available[key] = 0
	}
}

// Budget is the submission bound for one tag bucket: the outstanding demand
// not already covered by waiting pilots, capped by endpoint capacity and by
// what is left of the per-queue submission ceiling.
func Budget(availableSlots, tagJobs, waitingPilots, remainingCeiling int) int {
	budget := tagJobs - waitingPilots
	if availableSlots < budget {
		budget = availableSlots
	}
	if remainingCeiling < budget {
		budget = remainingCeiling
	}
	if budget < 0 {
		return 0
	}
	return budget
}
