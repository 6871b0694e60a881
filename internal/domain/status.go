package domain

// caseTransitions is the fixed case status policy. Closed is terminal:
// no outgoing transitions.
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusNew:       {CaseStatusWorking, CaseStatusEscalated, CaseStatusClosed},
	CaseStatusWorking:   {CaseStatusEscalated, CaseStatusClosed},
	CaseStatusEscalated: {CaseStatusWorking, CaseStatusClosed},
	CaseStatusClosed:    {},
}

// CanTransition reports whether from -> to is a legal case status change.
// Any pair not in the table is illegal.
func CanTransition(from, to CaseStatus) bool {
	for _, allowed := range caseTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// highPriorityReasons are the reason codes that escalate a new case to
// High priority.
var highPriorityReasons = map[ReturnReason]bool{
	ReasonDefective:    true,
	ReasonDamaged:      true,
	ReasonQualityIssue: true,
}

// IsHighPriorityReason reports whether a return reason warrants a
// High-priority case.
func IsHighPriorityReason(r ReturnReason) bool {
	return highPriorityReasons[r]
}

// CasePriorityForLineItems returns High when any line item carries a
// high-priority reason, Medium otherwise.
func CasePriorityForLineItems(items []ReturnOrderLineItem) CasePriority {
	for _, item := range items {
		if IsHighPriorityReason(item.Reason) {
			return CasePriorityHigh
		}
	}
	return CasePriorityMedium
}
