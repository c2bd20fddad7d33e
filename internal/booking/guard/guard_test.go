package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name             string
		projected        int64
		guestCount       int
		maxCapacity      int
		requiresApproval bool
		want             Decision
	}{
		{"empty area confirms", 0, 2, 10, false, DecisionConfirm},
		{"fills area to exact capacity", 3, 2, 5, false, DecisionConfirm},
		{"one seat over goes to review", 3, 3, 5, false, DecisionReview},
		{"full area goes to review", 5, 1, 5, false, DecisionReview},
		{"party larger than area goes to review", 0, 6, 5, false, DecisionReview},
		{"party equal to area confirms when empty", 0, 5, 5, false, DecisionConfirm},
		{"approval required overrides empty area", 0, 1, 10, true, DecisionReview},
		{"approval required overrides exact fit", 3, 2, 5, true, DecisionReview},
		{"single seat single guest", 0, 1, 1, false, DecisionConfirm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.projected, tt.guestCount, tt.maxCapacity, tt.requiresApproval)
			assert.Equal(t, tt.want, got)
		})
	}
}
