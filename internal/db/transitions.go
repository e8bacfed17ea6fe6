package db

// ValidTransitions is the campaign state machine. A transition not listed
// here fails closed with *InvalidTransitionError; there is no wildcard
// path. Recovery always routes back through APPROVED so a retry re-runs the
// whole dispatch sequence.
var ValidTransitions = map[CampaignStatus][]CampaignStatus{
	StatusDraftGenerating:      {StatusPendingHumanApproval, StatusRejected, StatusFailed},
	StatusPendingHumanApproval: {StatusApproved, StatusFailed},
	StatusApproved:             {StatusDispatchingToAPI},
	StatusDispatchingToAPI:     {StatusProductionProcessing, StatusApproved, StatusDispatchFailed},
	StatusProductionProcessing: {StatusCompleted, StatusProductionFailed},
	StatusDispatchFailed:       {StatusApproved},
	StatusProductionFailed:     {StatusApproved},
	StatusCompleted:            {},
	StatusFailed:               {},
	StatusRejected:             {},
}

// CanTransition reports whether moving from one status to the other is legal.
func CanTransition(from, to CampaignStatus) bool {
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the legal targets from a status.
func AllowedTargets(from CampaignStatus) []CampaignStatus {
	return ValidTransitions[from]
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(status CampaignStatus) bool {
	targets, known := ValidTransitions[status]
	return known && len(targets) == 0
}
