package allocation

import (
	"math/rand"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// Allocator assigns freshly submitted pilots to demand buckets with
// probability proportional to task queue priority.
type Allocator struct {
	rand *rand.Rand
}

func NewAllocator(rand *rand.Rand) *Allocator {
	return &Allocator{rand: rand}
}

// Assign draws one independent, priority-weighted pick per pilot reference and
// groups the references by the task queue they landed on. Task queues must be
// passed in a stable order and carry a positive total priority; with zero
// total weight there is nothing to submit and the allocator must not be
// called, so nil is returned.
func (a *Allocator) Assign(pilotRefs []string, taskQueues []domain.TaskQueueDemand) map[domain.TaskQueueID][]string {
	cumulative := make([]float64, 0, len(taskQueues))
	sumPriority := 0.0
	for _, taskQueue := range taskQueues {
		sumPriority += taskQueue.Priority
		cumulative = append(cumulative, sumPriority)
	}
	if sumPriority <= 0 {
		return nil
	}

	assigned := map[domain.TaskQueueID][]string{}
	for _, ref := range pilotRefs {
		pick := a.rand.Float64() * sumPriority
		selected := taskQueues[len(taskQueues)-1].ID
		for i, weight := range cumulative {
			if pick < weight {
				selected = taskQueues[i].ID
				break
			}
		}
		assigned[selected] = append(assigned[selected], ref)
	}
	return assigned
}
