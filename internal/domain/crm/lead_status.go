package crm

import (
	"fmt"
	"strings"
)

// LeadStatus is a stage of the sales pipeline. The zero value is invalid.
type LeadStatus uint8

const (
	leadStatusInvalid LeadStatus = iota
	LeadStatusNew
	LeadStatusQualification
	LeadStatusNeedsAnalysis
	LeadStatusValueProposition
	LeadStatusIDDecisionMakers
	LeadStatusPerceptionAnalysis
	LeadStatusProposal
	LeadStatusNegotiation
	LeadStatusClosedWon
	LeadStatusClosedLost
)

// LeadStatuses lists the pipeline in its nominal order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusQualification,
	LeadStatusNeedsAnalysis,
	LeadStatusValueProposition,
	LeadStatusIDDecisionMakers,
	LeadStatusPerceptionAnalysis,
	LeadStatusProposal,
	LeadStatusNegotiation,
	LeadStatusClosedWon,
	LeadStatusClosedLost,
}

var leadStatusNames = map[LeadStatus]string{
	LeadStatusNew:                "NEW",
	LeadStatusQualification:      "QUALIFICATION",
	LeadStatusNeedsAnalysis:      "NEEDS_ANALYSIS",
	LeadStatusValueProposition:   "VALUE_PROPOSITION",
	LeadStatusIDDecisionMakers:   "ID_DECISION_MAKERS",
	LeadStatusPerceptionAnalysis: "PERCEPTION_ANALYSIS",
	LeadStatusProposal:           "PROPOSAL",
	LeadStatusNegotiation:        "NEGOTIATION",
	LeadStatusClosedWon:          "CLOSED_WON",
	LeadStatusClosedLost:         "CLOSED_LOST",
}

// ParseLeadStatus converts a wire name into a status.
func ParseLeadStatus(s string) (LeadStatus, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for status, name := range leadStatusNames {
		if name == want {
			return status, nil
		}
	}
	return leadStatusInvalid, fmt.Errorf("unknown lead status %q", s)
}

func (s LeadStatus) String() string {
	if name, ok := leadStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsTerminal reports whether no further transitions are possible.
func (s LeadStatus) IsTerminal() bool {
	switch s {
	case LeadStatusClosedWon, LeadStatusClosedLost:
		return true
	case leadStatusInvalid, LeadStatusNew, LeadStatusQualification, LeadStatusNeedsAnalysis,
		LeadStatusValueProposition, LeadStatusIDDecisionMakers, LeadStatusPerceptionAnalysis,
		LeadStatusProposal, LeadStatusNegotiation:
	}
	return false
}

func (s LeadStatus) MarshalText() ([]byte, error) {
	if _, ok := leadStatusNames[s]; !ok {
		return nil, fmt.Errorf("cannot marshal invalid lead status %d", s)
	}
	return []byte(s.String()), nil
}

func (s *LeadStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseLeadStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
