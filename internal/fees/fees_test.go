package fees

import (
	"math"
	"testing"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

func TestPercentPlusFixedAppliesSurcharge(t *testing.T) {
	sched := PercentPlusFixed{Rate: 0.001, Fixed: 20, Surcharge: 0.18}
	rate, fixed := sched.Compute(models.Buy, 100000)
	if math.Abs(rate-0.00118) > 1e-9 {
		t.Errorf("rate = %v, want 0.00118", rate)
	}
	if math.Abs(fixed-23.6) > 1e-9 {
		t.Errorf("fixed = %v, want 23.6", fixed)
	}
}

func TestTieredScheduleSelectsBracket(t *testing.T) {
	sched := TieredSchedule{
		Tiers: []Tier{
			{Ceiling: 10000, Rate: 0.001},
			{Ceiling: 100000, Rate: 0.0005},
			{Ceiling: math.Inf(1), Rate: 0.0002},
		},
		Fixed: 20,
	}
	if rate, fixed := sched.Compute(models.Buy, 5000); rate != 0.001 || fixed != 20 {
		t.Errorf("bracket 1 = (%v,%v), want (0.001,20)", rate, fixed)
	}
	if rate, _ := sched.Compute(models.Buy, 50000); rate != 0.0005 {
		t.Errorf("bracket 2 rate = %v, want 0.0005", rate)
	}
	if rate, _ := sched.Compute(models.Buy, 1_000_000); rate != 0.0002 {
		t.Errorf("top bracket rate = %v, want 0.0002", rate)
	}
}

func TestAsymmetricScheduleBySide(t *testing.T) {
	buy := PercentPlusFixed{Rate: 0.001}
	sell := PercentPlusFixed{Rate: 0.002}
	sched := AsymmetricSchedule{Buy: buy, Sell: sell}
	if rate, _ := sched.Compute(models.Buy, 1000); rate != 0.001 {
		t.Errorf("buy leg rate = %v, want 0.001", rate)
	}
	if rate, _ := sched.Compute(models.Sell, 1000); rate != 0.002 {
		t.Errorf("sell leg rate = %v, want 0.002", rate)
	}
}

func TestApplyToSetsOrderFees(t *testing.T) {
	order := &models.Order{Size: 10}
	sched := PercentPlusFixed{Rate: 0.001, Fixed: 5}
	ApplyTo(order, sched, models.Buy, 100)
	if order.Fees != 0.001 || order.FixedFees != 5 {
		t.Errorf("order fees = (%v,%v), want (0.001,5)", order.Fees, order.FixedFees)
	}
}
