package fake

import (
	"github.com/Ares7/DIRAC/internal/sitedirector"
	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

// GridCollaborators wires a small in-process grid: two sites, three queues,
// a handful of demand buckets. Useful to run the director binary without any
// grid services behind it.
func GridCollaborators() sitedirector.Collaborators {
	endpointA := &ComputeEndpoint{Slots: 50}
	endpointB := &ComputeEndpoint{Slots: 20}
	endpointC := &ComputeEndpoint{Slots: 8}

	queues := []domain.CandidateQueue{
		{
			Key:           domain.QueueKey{Site: "LCG.CERN.ch", Endpoint: "ce01.cern.ch", Name: "long"},
			Endpoint:      endpointA,
			EndpointType:  domain.EndpointARC,
			Platform:      "x86_64-el9",
			MaxProcessors: 8,
			Parameters:    map[string]string{domain.ParamCPUTime: "172800"},
		},
		{
			Key:           domain.QueueKey{Site: "LCG.CERN.ch", Endpoint: "ce02.cern.ch", Name: "wholenode"},
			Endpoint:      endpointB,
			EndpointType:  domain.EndpointHTCondor,
			Platform:      "x86_64-el9",
			MaxProcessors: 1,
			WholeNode:     true,
			Parameters:    map[string]string{domain.ParamCPUTime: "86400"},
		},
		{
			Key:           domain.QueueKey{Site: "LCG.GRIDKA.de", Endpoint: "ce.gridka.de", Name: "mp"},
			Endpoint:      endpointC,
			EndpointType:  domain.EndpointCREAM,
			Platform:      "x86_64-el9",
			MaxProcessors: 4,
			Parameters:    map[string]string{domain.ParamCPUTime: "259200"},
		},
	}

	demand := map[domain.TaskQueueID]domain.TaskQueueDemand{
		101: {ID: 101, Jobs: 12, Priority: 1, Tags: []string{"8Processors"}, Sites: []string{"LCG.CERN.ch"}},
		102: {ID: 102, Jobs: 5, Priority: 3, Tags: []string{"WholeNode"}},
		103: {ID: 103, Jobs: 9, Priority: 2, Tags: []string{"4Processors"}, Sites: []string{"LCG.GRIDKA.de"}},
	}

	return sitedirector.Collaborators{
		CandidateQueues: &QueueProvider{Queues: queues},
		Matcher: &Matcher{
			GlobalResult: demand,
			QueueResults: map[string]map[domain.TaskQueueID]domain.TaskQueueDemand{
				"ce01.cern.ch": {101: demand[101]},
				"ce02.cern.ch": {102: demand[102]},
				"ce.gridka.de": {103: demand[103]},
			},
		},
		PilotStore:  &PilotStore{},
		SiteMask:    &SiteMask{Sites: []string{"LCG.CERN.ch", "LCG.GRIDKA.de"}},
		Credentials: &CredentialProvider{},
		Bundles:     &BundleBuilder{},
	}
}
