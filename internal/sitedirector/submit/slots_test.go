package submit

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

type stubEndpoint struct {
	slots    int
	slotsErr error
	queries  int
}

func (e *stubEndpoint) SetCredential(domain.Credential, time.Duration) error { return nil }

func (e *stubEndpoint) AvailableSlots() (int, error) {
	e.queries++
	return e.slots, e.slotsErr
}

func (e *stubEndpoint) Submit(string, int, int) (*domain.SubmitResult, error) {
	return &domain.SubmitResult{}, nil
}

func slotQueue(endpoint domain.ComputeEndpoint) *domain.Queue {
	return &domain.Queue{
		Key:      domain.QueueKey{Site: "LCG.CERN.ch", Endpoint: "ce01.cern.ch", Name: "mp"},
		Endpoint: endpoint,
	}
}

func TestSlotAccountant_QueriesEndpointOncePerCycle(t *testing.T) {
	endpoint := &stubEndpoint{slots: 10}
	accountant := NewSlotAccountant()
	queue := slotQueue(endpoint)

	assert.Equal(t, 10, accountant.Available(queue))
	assert.Equal(t, 10, accountant.Available(queue))
	assert.Equal(t, 1, endpoint.queries)
}

func TestSlotAccountant_ConsumeDrawsDownWithinCycle(t *testing.T) {
	endpoint := &stubEndpoint{slots: 10}
	accountant := NewSlotAccountant()
	queue := slotQueue(endpoint)

	accountant.Available(queue)
	accountant.Consume(queue.Key, 4)
	assert.Equal(t, 6, accountant.Available(queue))
	accountant.Consume(queue.Key, 9)
	assert.Equal(t, 0, accountant.Available(queue))
}

func TestSlotAccountant_QueryFailureCountsAsZero(t *testing.T) {
	endpoint := &stubEndpoint{slotsErr: errors.New("endpoint unreachable")}
	accountant := NewSlotAccountant()

	assert.Equal(t, 0, accountant.Available(slotQueue(endpoint)))
	assert.Equal(t, 1, endpoint.queries)
}

func TestBudget(t *testing.T) {
	tests := map[string]struct {
		slots, jobs, waiting, ceiling int
		expected                      int
	}{
		"bounded by demand":           {slots: 10, jobs: 5, waiting: 0, ceiling: 100, expected: 5},
		"bounded by slots":            {slots: 3, jobs: 5, waiting: 0, ceiling: 100, expected: 3},
		"bounded by ceiling":          {slots: 10, jobs: 5, waiting: 0, ceiling: 2, expected: 2},
		"waiting pilots cover demand": {slots: 10, jobs: 5, waiting: 5, ceiling: 100, expected: 0},
		"waiting exceeds demand":      {slots: 10, jobs: 5, waiting: 9, ceiling: 100, expected: 0},
		"ceiling exhausted":           {slots: 10, jobs: 5, waiting: 0, ceiling: 0, expected: 0},
		"no slots":                    {slots: 0, jobs: 5, waiting: 0, ceiling: 100, expected: 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Budget(tc.slots, tc.jobs, tc.waiting, tc.ceiling))
		})
	}
}
