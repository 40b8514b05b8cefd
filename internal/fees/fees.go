// Package fees generalizes the teacher's Indian-brokerage calculator into a
// side/notional-aware fee schedule that feeds an order's Fees/FixedFees
// fields directly, instead of being computed after the fact from a fixed
// buy/sell pair.
package fees

import (
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Schedule computes the proportional fee rate and the fixed per-order fee
// for a trade of the given side and notional (price * size, pre-fee).
type Schedule interface {
	Compute(side models.OrderSide, notional float64) (rate, fixed float64)
}

// PercentPlusFixed is a flat-rate schedule: a proportional rate plus a fixed
// per-order charge, both optionally grossed up by a surcharge (the teacher's
// GST line applied on top of brokerage + exchange + SEBI charges).
type PercentPlusFixed struct {
	Rate      float64
	Fixed     float64
	Surcharge float64
}

// Compute implements Schedule.
func (p PercentPlusFixed) Compute(_ models.OrderSide, _ float64) (rate, fixed float64) {
	return p.Rate * (1 + p.Surcharge), p.Fixed * (1 + p.Surcharge)
}

// Tier is one notional bracket of a TieredSchedule: trades with notional at
// or below Ceiling (use math.Inf(1) for the top bracket) pay Rate.
type Tier struct {
	Ceiling float64
	Rate    float64
}

// TieredSchedule picks a proportional rate by notional bracket (replacing
// the teacher's "₹20 per order or 0.03%, whichever is lower" cap with an
// explicit bracket table) plus a flat fixed fee applied regardless of
// bracket.
type TieredSchedule struct {
	Tiers []Tier // ascending by Ceiling; the last entry should have Ceiling = +Inf
	Fixed float64
}

// Compute implements Schedule.
func (t TieredSchedule) Compute(_ models.OrderSide, notional float64) (rate, fixed float64) {
	for _, tier := range t.Tiers {
		if notional <= tier.Ceiling {
			return tier.Rate, t.Fixed
		}
	}
	if len(t.Tiers) == 0 {
		return 0, t.Fixed
	}
	return t.Tiers[len(t.Tiers)-1].Rate, t.Fixed
}

// AsymmetricSchedule applies a different Schedule to buys than to sells —
// the shape of the teacher's CNC table, where STT and stamp duty land only
// on one leg of a round trip.
type AsymmetricSchedule struct {
	Buy, Sell Schedule
}

// Compute implements Schedule.
func (a AsymmetricSchedule) Compute(side models.OrderSide, notional float64) (rate, fixed float64) {
	if side == models.Sell && a.Sell != nil {
		return a.Sell.Compute(side, notional)
	}
	if a.Buy != nil {
		return a.Buy.Compute(side, notional)
	}
	return 0, 0
}

// ApplyTo sets order.Fees and order.FixedFees from a schedule, estimating
// notional from the order's own Size*Price (the caller is expected to call
// this after resolving a concrete reference price, e.g. the prior bar's
// close, since the schedule runs before execute_order resolves the final
// fill price).
func ApplyTo(order *models.Order, sched Schedule, side models.OrderSide, referencePrice float64) {
	notional := order.Size * referencePrice
	if notional < 0 {
		notional = -notional
	}
	rate, fixed := sched.Compute(side, notional)
	order.Fees = rate
	order.FixedFees = fixed
}
