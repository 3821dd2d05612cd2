package domain

type transition struct {
	from DeliveryStatus
	to   DeliveryStatus
}

// deliveryTransitions lists every legal delivery edge. Pairs not listed,
// including a status to itself, are illegal.
var deliveryTransitions = map[transition]bool{
	{DeliveryPending, DeliveryInTransit}:      true,
	{DeliveryInTransit, DeliveryDelivered}:    true,
	{DeliveryInTransit, DeliveryNotDelivered}: true,
}

// DeliveryStatuses returns every delivery state.
func DeliveryStatuses() []DeliveryStatus {
	return []DeliveryStatus{DeliveryNotDelivered, DeliveryPending, DeliveryInTransit, DeliveryDelivered}
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryNotDelivered, DeliveryPending, DeliveryInTransit, DeliveryDelivered:
		return true
	default:
		return false
	}
}

// Terminal reports whether no edge leaves s.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryNotDelivered
}

func IsValidTransition(from, to DeliveryStatus) bool {
	return deliveryTransitions[transition{from: from, to: to}]
}

func (i Invoice) CanChangeStatus() bool {
	return i.Status != StatusCancelled && !i.DeliveryStatus.Terminal()
}

func (i Invoice) CanChangeAddress() bool {
	return i.Status != StatusCancelled && i.DeliveryStatus == DeliveryPending
}

func (i Invoice) CanCancel() bool {
	return i.Status == StatusPaid &&
		(i.DeliveryStatus == DeliveryPending || i.DeliveryStatus == DeliveryNotDelivered)
}

// CanProvideFeedback is true once delivery has ended and no feedback is
// recorded yet.
func (i Invoice) CanProvideFeedback() bool {
	return i.DeliveryStatus.Terminal() && !i.HasFeedback()
}

func (i Invoice) HasFeedback() bool {
	return i.Feedback != nil || i.Star != nil
}
