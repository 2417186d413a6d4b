// Package funding holds the pure funding-target and achievement rules.
//
// Nothing here touches storage; the persisted monthly target on a project is
// a cache of ResolveMonthlyTarget over its pledge configuration, recomputed
// on every edit.
package funding

import (
	"strings"

	id "givers/pkg/domain"
	dErrors "givers/pkg/domain-errors"
)

// CostItem is one line of a project's itemized cost estimate.
type CostItem struct {
	Label     string   `json:"label"`
	UnitPrice id.Money `json:"unit_price"`
	Quantity  int      `json:"quantity"`
}

// Monthly returns the monthly cost this line contributes.
func (c CostItem) Monthly() id.Money {
	return c.UnitPrice * id.Money(c.Quantity)
}

// blank reports whether the item is an unfilled form row rather than a real
// cost: empty label and zero unit price.
func (c CostItem) blank() bool {
	return strings.TrimSpace(c.Label) == "" && c.UnitPrice == 0
}

// PledgeConfig is a project's funding-need declaration. Either field may be
// absent; when both are present the canonical target is the maximum of the
// two, never a sum or average.
type PledgeConfig struct {
	OwnerWantMonthly *id.Money  `json:"owner_want_monthly,omitempty"`
	CostItems        []CostItem `json:"cost_items,omitempty"`
}

// ValidateCostItems rejects negative unit prices or quantities. The resolver
// itself never fails; callers validate before persisting.
func ValidateCostItems(items []CostItem) error {
	for i, item := range items {
		if item.UnitPrice < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "cost item %d: unit price must not be negative", i)
		}
		if item.Quantity < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "cost item %d: quantity must not be negative", i)
		}
	}
	return nil
}

// ResolveMonthlyTarget computes the canonical monthly target from a pledge
// configuration:
//
//	max(ownerWantMonthly ?? 0, sum of unitPrice*quantity over real cost items)
//
// Blank rows (empty label and zero price) are dropped before summing. An
// empty configuration resolves to 0, which means the project has no
// achievement concept. Deterministic and side-effect free.
func ResolveMonthlyTarget(cfg PledgeConfig) id.Money {
	var want id.Money
	if cfg.OwnerWantMonthly != nil && *cfg.OwnerWantMonthly > 0 {
		want = *cfg.OwnerWantMonthly
	}

	var itemized id.Money
	for _, item := range cfg.CostItems {
		if item.blank() {
			continue
		}
		itemized += item.Monthly()
	}

	if itemized > want {
		return itemized
	}
	return want
}
