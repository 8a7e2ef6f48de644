package resources

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ares7/DIRAC/internal/sitedirector/domain"
)

const WholeNodeTag = "WholeNode"

var processorsTagPattern = regexp.MustCompile(`^([0-9]+)Processors$`)

func ProcessorsTag(processors int) string {
	return fmt.Sprintf("%dProcessors", processors)
}

// ProcessorsFromTag parses a "{N}Processors" tag. The second return value is
// false for any other tag, including WholeNode.
func ProcessorsFromTag(tag string) (int, bool) {
	m := processorsTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	processors, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return processors, true
}

// TagProcessors returns the processor count a tag bucket asks for, with the
// whole-node tag encoded as the sentinel value.
func TagProcessors(tag string) int {
	if tag == WholeNodeTag {
		return domain.WholeNodeProcessors
	}
	if processors, ok := ProcessorsFromTag(tag); ok {
		return processors
	}
	return 1
}

// DeriveTags turns a queue's effective capability description into the set of
// resource tags it can satisfy: one "{N}Processors" tag for each N up to
// maxProcessors, plus WholeNode when the queue offers whole nodes.
func DeriveTags(maxProcessors int, wholeNode bool) []string {
	tags := make([]string, 0, maxProcessors+1)
	for processors := 1; processors <= maxProcessors; processors++ {
		tags = append(tags, ProcessorsTag(processors))
	}
	if wholeNode {
		tags = append(tags, WholeNodeTag)
	}
	return tags
}

// QualifiesForMultiProcessor reports whether a tag set marks a queue as this
// director's responsibility. Queues that can only run single-processor pilots
// are left to the baseline director.
func QualifiesForMultiProcessor(tags []string) bool {
	for _, tag := range tags {
		if tag == WholeNodeTag {
			return true
		}
		if processors, ok := ProcessorsFromTag(tag); ok && processors >= 2 {
			return true
		}
	}
	return false
}

func wholeNodeDeclared(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "true":
		return true
	}
	return false
}

// effectiveMaxProcessors resolves the operator override against the
// endpoint-reported value.
func effectiveMaxProcessors(candidate domain.CandidateQueue) int {
	if declared, ok := candidate.Parameters[domain.ParamMaxProcessors]; ok {
		if maxProcessors, err := strconv.Atoi(declared); err == nil {
			return maxProcessors
		}
	}
	return candidate.MaxProcessors
}

// effectiveWholeNode is true when either the operator or the endpoint declares
// whole-node support.
func effectiveWholeNode(candidate domain.CandidateQueue) bool {
	if declared, ok := candidate.Parameters[domain.ParamWholeNode]; ok {
		return wholeNodeDeclared(declared)
	}
	return candidate.WholeNode
}
