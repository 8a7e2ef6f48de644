package submit_test

import (
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ares7/DIRAC/internal/common/util"
	"github.com/Ares7/DIRAC/internal/sitedirector/allocation"
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
	"github.com/Ares7/DIRAC/internal/sitedirector/fake"
	"github.com/Ares7/DIRAC/internal/sitedirector/matching"
	"github.com/Ares7/DIRAC/internal/sitedirector/submit"
)

type submitterFixture struct {
	submitter   *submit.Submitter
	store       *fake.PilotStore
	credentials *fake.CredentialProvider
	bundles     *fake.BundleBuilder
	endpoint    *fake.ComputeEndpoint
	accountant  *submit.SlotAccountant
}

func setupSubmitter(t *testing.T, endpoint *fake.ComputeEndpoint, maxPilots int) *submitterFixture {
	t.Helper()
	store := &fake.PilotStore{}
	credentials := &fake.CredentialProvider{}
	bundles := &fake.BundleBuilder{}
	submitter := submit.NewSubmitter(
		submit.NewCredentialCache(credentials),
		bundles,
		store,
		allocation.NewAllocator(util.NewThreadsafeRand(1)),
		"/DC=org/DC=example/CN=pilot",
		"pilot",
		"director.example.org",
		maxPilots,
	)
	return &submitterFixture{
		submitter:   submitter,
		store:       store,
		credentials: credentials,
		bundles:     bundles,
		endpoint:    endpoint,
		accountant:  submit.NewSlotAccountant(),
	}
}

func multiProcessorQueue(endpoint domain.ComputeEndpoint, endpointType domain.EndpointType) *domain.Queue {
	return &domain.Queue{
		Key:          domain.QueueKey{Site: "LCG.CERN.ch", Endpoint: "ce01.cern.ch", Name: "mp"},
		Endpoint:     endpoint,
		EndpointType: endpointType,
		Platform:     "x86_64-el9",
		CPUTimeLimit: 86400,
		Parameters:   map[string]string{},
		Tags:         []string{"1Processors", "2Processors", "3Processors", "4Processors"},
	}
}

func twoProcessorBucket() *matching.TagBucket {
	return &matching.TagBucket{
		Tag: "2Processors",
		TaskQueues: []domain.TaskQueueDemand{
			{ID: 1, Jobs: 2, Priority: 1, Tags: []string{"2Processors"}},
			{ID: 2, Jobs: 3, Priority: 2, Tags: []string{"2Processors"}},
		},
		TotalJobs: 5,
	}
}

func TestSubmitBucket_BoundedByJobCount(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10}
	f := setupSubmitter(t, endpoint, 100)
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	submitted, recorded, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:  queue,
		Bucket: twoProcessorBucket(),
	}, f.accountant)

	require.NoError(t, err)
	assert.Equal(t, 5, submitted)
	assert.Equal(t, 5, recorded)

	require.Len(t, endpoint.SubmitCalls, 1)
	assert.Equal(t, 5, endpoint.SubmitCalls[0].Chunk)
	assert.Equal(t, 2, endpoint.SubmitCalls[0].Processors)

	// All five pilots recorded across the two task queues.
	pilots := f.store.RecordedPilots()
	total := 0
	for _, group := range pilots {
		total += len(group)
	}
	assert.Equal(t, 5, total)
	require.Len(t, f.store.Statuses, 5)
	for _, status := range f.store.Statuses {
		assert.Equal(t, domain.PilotSubmitted, status.Status)
		assert.Equal(t, "LCG.CERN.ch", status.Site)
		assert.Equal(t, "mp", status.QueueName)
	}

	// Endpoint capacity drawn down in memory.
	assert.Equal(t, 5, f.accountant.Available(queue))
}

func TestSubmitBucket_WholeNodeSentinel(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 1}
	f := setupSubmitter(t, endpoint, 100)
	queue := &domain.Queue{
		Key:          domain.QueueKey{Site: "LCG.CERN.ch", Endpoint: "ce02.cern.ch", Name: "wholenode"},
		Endpoint:     endpoint,
		EndpointType: domain.EndpointARC,
		CPUTimeLimit: 86400,
		Parameters:   map[string]string{},
		Tags:         []string{"WholeNode"},
	}
	bucket := &matching.TagBucket{
		Tag:        "WholeNode",
		TaskQueues: []domain.TaskQueueDemand{{ID: 7, Jobs: 3, Priority: 1, Tags: []string{"WholeNode"}}},
		TotalJobs:  3,
	}

	submitted, recorded, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:  queue,
		Bucket: bucket,
	}, f.accountant)

	require.NoError(t, err)
	assert.Equal(t, 1, submitted)
	assert.Equal(t, 1, recorded)
	require.Len(t, endpoint.SubmitCalls, 1)
	assert.Equal(t, domain.WholeNodeProcessors, endpoint.SubmitCalls[0].Processors)
}

func TestSubmitBucket_SubmissionFailure(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10, SubmitErr: errors.New("endpoint rejected the job")}
	f := setupSubmitter(t, endpoint, 100)
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	submitted, recorded, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:  queue,
		Bucket: twoProcessorBucket(),
	}, f.accountant)

	require.Error(t, err)
	assert.True(t, errors.Is(err, submit.ErrSubmission))
	assert.Equal(t, 0, submitted)
	assert.Equal(t, 0, recorded)
	assert.Empty(t, f.store.Associations)
}

func TestSubmitBucket_CredentialFailureIsQueueFatal(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10}
	f := setupSubmitter(t, endpoint, 100)
	f.credentials.Err = errors.New("proxy service down")
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	_, _, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:  queue,
		Bucket: twoProcessorBucket(),
	}, f.accountant)

	require.Error(t, err)
	assert.False(t, errors.Is(err, submit.ErrSubmission))
	assert.Empty(t, endpoint.SubmitCalls)
}

func TestSubmitBucket_ChunkedSubmission(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10}
	f := setupSubmitter(t, endpoint, 100)
	f.bundles.ChunkLimit = 2
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	submitted, recorded, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:  queue,
		Bucket: twoProcessorBucket(),
	}, f.accountant)

	require.NoError(t, err)
	assert.Equal(t, 5, submitted)
	assert.Equal(t, 5, recorded)
	require.Len(t, endpoint.SubmitCalls, 3)
	assert.Equal(t, 2, endpoint.SubmitCalls[0].Chunk)
	assert.Equal(t, 2, endpoint.SubmitCalls[1].Chunk)
	assert.Equal(t, 1, endpoint.SubmitCalls[2].Chunk)
}

func TestSubmitBucket_RespectsPerQueueCeiling(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10}
	f := setupSubmitter(t, endpoint, 4)
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	submitted, _, err := f.submitter.SubmitBucket(submit.BucketSubmission{
		Queue:            queue,
		Bucket:           twoProcessorBucket(),
		AlreadySubmitted: 1,
	}, f.accountant)

	require.NoError(t, err)
	assert.Equal(t, 3, submitted)
}

func TestSubmitBucket_CredentialReusedWithinCycle(t *testing.T) {
	endpoint := &fake.ComputeEndpoint{Slots: 10}
	f := setupSubmitter(t, endpoint, 100)
	queue := multiProcessorQueue(endpoint, domain.EndpointARC)

	_, _, err := f.submitter.SubmitBucket(submit.BucketSubmission{Queue: queue, Bucket: twoProcessorBucket()}, f.accountant)
	require.NoError(t, err)
	_, _, err = f.submitter.SubmitBucket(submit.BucketSubmission{Queue: queue, Bucket: twoProcessorBucket(), WaitingPilots: 4}, f.accountant)
	require.NoError(t, err)

	require.Len(t, f.credentials.IssuedValidities, 1)
	assert.Equal(t, 86400*time.Second+24*time.Hour, f.credentials.IssuedValidities[0])
}

func TestSubmitBucket_BundleCleanup(t *testing.T) {
	workDir := t.TempDir()

	run := func(t *testing.T, endpointType domain.EndpointType) string {
		endpoint := &fake.ComputeEndpoint{Slots: 10}
		store := &fake.PilotStore{}
		submitter := submit.NewSubmitter(
			submit.NewCredentialCache(&fake.CredentialProvider{}),
			submit.NewScriptBundleBuilder(workDir),
			store,
			allocation.NewAllocator(util.NewThreadsafeRand(1)),
			"/DC=org/DC=example/CN=pilot", "pilot", "director.example.org", 100,
		)
		_, _, err := submitter.SubmitBucket(submit.BucketSubmission{
			Queue:  multiProcessorQueue(endpoint, endpointType),
			Bucket: twoProcessorBucket(),
		}, submit.NewSlotAccountant())
		require.NoError(t, err)
		require.Len(t, endpoint.SubmitCalls, 1)
		return endpoint.SubmitCalls[0].BundlePath
	}

	t.Run("removed after submission", func(t *testing.T) {
		path := run(t, domain.EndpointARC)
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("retained for deferred pickup endpoints", func(t *testing.T) {
		path := run(t, domain.EndpointHTCondor)
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})
}
