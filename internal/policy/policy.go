// Package policy holds the cancellation refund tiers and the lead-time guards
// every session mutation is checked against.
package policy

import (
	"fmt"
	"time"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

type Refund struct {
	Percentage  int   `json:"percentage"`
	AmountCents int64 `json:"amount_cents"`
}

// Policies are the per-role refund tiers.
type Policies struct {
	Mentor models.CancellationPolicy `yaml:"mentor"`
	Mentee models.CancellationPolicy `yaml:"mentee"`
}

func (p Policies) For(role models.Role) models.CancellationPolicy {
	if role == models.RoleMentor {
		return p.Mentor
	}
	return p.Mentee
}

func Validate(p models.CancellationPolicy) error {
	if p.FreeCancellationHours < 0 || p.CancellationCutoffHours < 0 {
		return fmt.Errorf("%w: policy hours must not be negative", response.ErrInvalidInput)
	}
	if p.CancellationCutoffHours > p.FreeCancellationHours {
		return fmt.Errorf("%w: cancellation cutoff exceeds free cancellation window", response.ErrInvalidInput)
	}
	for _, pct := range []int{p.PartialRefundPercentage, p.LateCancellationRefundPercentage} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: refund percentage %d out of range", response.ErrInvalidInput, pct)
		}
	}
	return nil
}

func HoursUntil(scheduledAt, now time.Time) float64 {
	return scheduledAt.Sub(now).Hours()
}

// ComputeRefund applies the refund tiers for a cancellation by role at now.
func ComputeRefund(role models.Role, rateCents int64, scheduledAt, now time.Time, p models.CancellationPolicy) Refund {
	pct := refundPercentage(role, scheduledAt, now, p)
	return Refund{Percentage: pct, AmountCents: Amount(rateCents, pct)}
}

// FullRefund is used when the cancellation is caused by the other party.
func FullRefund(rateCents int64) Refund {
	return Refund{Percentage: 100, AmountCents: rateCents}
}

func refundPercentage(role models.Role, scheduledAt, now time.Time, p models.CancellationPolicy) int {
	if role == models.RoleMentor {
		return 100
	}
	if !scheduledAt.After(now) {
		return 0
	}

	hours := HoursUntil(scheduledAt, now)
	switch {
	case hours >= p.FreeCancellationHours:
		return 100
	case hours >= p.CancellationCutoffHours:
		return p.PartialRefundPercentage
	default:
		return p.LateCancellationRefundPercentage
	}
}

// Amount is rate*pct/100 rounded half-up to the cent.
func Amount(rateCents int64, pct int) int64 {
	if rateCents <= 0 || pct <= 0 {
		return 0
	}
	return (rateCents*int64(pct) + 50) / 100
}
