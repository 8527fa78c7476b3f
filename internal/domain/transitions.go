package domain

// allowedTransitions is the fixed status graph. Directed edges only; the
// absence of an edge means the transition is rejected regardless of role.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:               {TicketStatusAssigned, TicketStatusCancelled},
	TicketStatusAssigned:          {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress:        {TicketStatusWaitingOnCustomer, TicketStatusWaitingOnVendor, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusWaitingOnCustomer: {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusWaitingOnVendor:   {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusResolved:          {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:            {},
	TicketStatusCancelled:         {},
}

// CanTransition reports whether the edge current -> next exists in the graph.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from status.
func IsTerminal(status TicketStatus) bool {
	return status == TicketStatusClosed || status == TicketStatusCancelled
}
