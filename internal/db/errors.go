package db

import "fmt"

// InvalidTransitionError rejects a campaign state change not present in
// ValidTransitions. The check runs under a row lock, so the reported
// Current status is the one that actually blocked the move.
type InvalidTransitionError struct {
	CampaignID string
	Current    CampaignStatus
	Target     CampaignStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("campaign %s: invalid transition %s -> %s (allowed: %v)",
		e.CampaignID, e.Current, e.Target, AllowedTargets(e.Current))
}
