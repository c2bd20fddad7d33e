// Package guard holds the pure capacity decision. It sees only numbers
// and flags already snapshotted on the booking, never the database.
package guard

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionReview  Decision = "review"
)

// Decide resolves whether a paid booking can be auto-confirmed.
//
// Approval-required areas always go to the host, regardless of occupancy.
// A party larger than the area can ever hold goes to the host too, so a
// human sees the request instead of a silent rejection. Otherwise the
// booking confirms iff the projected occupancy plus its own guests still
// fits: filling the area to exactly its capacity is allowed.
func Decide(projected int64, guestCount, maxCapacity int, requiresApproval bool) Decision {
	if requiresApproval {
		return DecisionReview
	}
	if guestCount > maxCapacity {
		return DecisionReview
	}
	if projected+int64(guestCount) <= int64(maxCapacity) {
		return DecisionConfirm
	}
	return DecisionReview
}
