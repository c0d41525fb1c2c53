package models

import "time"

type DeclineReason string

const (
	DeclineCodeNotFound   DeclineReason = "code_not_found"
	DeclineNotYetActive   DeclineReason = "not_yet_active"
	DeclineExpired        DeclineReason = "expired"
	DeclineQuotaExhausted DeclineReason = "quota_exhausted"
	DeclineMinOrderNotMet DeclineReason = "min_order_not_met"
)

var declineMessages = map[DeclineReason]string{
	DeclineCodeNotFound:   "Invalid discount code",
	DeclineNotYetActive:   "Discount not yet active",
	DeclineExpired:        "Discount expired",
	DeclineQuotaExhausted: "Discount limit reached",
	DeclineMinOrderNotMet: "Minimum order not met",
}

// Decline is a business-rule rejection at redemption time. It is a normal
// result, not an error.
type Decline struct {
	Reason  DeclineReason `json:"reason"`
	Message string        `json:"message"`
}

func NewDecline(reason DeclineReason) *Decline {
	return &Decline{Reason: reason, Message: declineMessages[reason]}
}

// CheckEligibility runs the redemption checks in order and returns the first
// failing one, or nil when the code can be used for an order of totalAmount.
// The active flag is not checked here; inactive codes are never loaded.
func CheckEligibility(d *DiscountCode, totalAmount float64, now time.Time) *Decline {
	if d == nil {
		return NewDecline(DeclineCodeNotFound)
	}
	if d.StartDate != nil && now.Before(*d.StartDate) {
		return NewDecline(DeclineNotYetActive)
	}
	if d.EndDate != nil && now.After(*d.EndDate) {
		return NewDecline(DeclineExpired)
	}
	if d.Quantity != nil && d.UsedCount >= *d.Quantity {
		return NewDecline(DeclineQuotaExhausted)
	}
	if d.MinOrder != nil && totalAmount < *d.MinOrder {
		return NewDecline(DeclineMinOrderNotMet)
	}
	return nil
}
