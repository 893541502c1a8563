package entitlement

import (
	"github.com/jmwangi/schoolgrid/internal/config"
	"github.com/jmwangi/schoolgrid/internal/limits"
)

// ConfigPricer reads overage unit prices from service configuration.
// Branches carry no price because they can never go into overage.
type ConfigPricer struct {
	prices map[limits.Resource]string
}

// NewConfigPricer builds a pricer from the loaded configuration.
func NewConfigPricer(cfg *config.Config) *ConfigPricer {
	return &ConfigPricer{prices: map[limits.Resource]string{
		limits.ResourceStudents:  cfg.OveragePriceStudents,
		limits.ResourceTeachers:  cfg.OveragePriceTeachers,
		limits.ResourceInvoices:  cfg.OveragePriceInvoices,
		limits.ResourceStorageGB: cfg.OveragePriceStorageGB,
	}}
}

// UnitPrice returns the per-unit overage price for a resource, "0" when
// the resource has no configured price.
func (p *ConfigPricer) UnitPrice(r limits.Resource) string {
	if price, ok := p.prices[r]; ok {
		return price
	}
	return "0"
}

// StaticPricer is a fixed price table, used by tests and the demo server.
type StaticPricer map[limits.Resource]string

func (p StaticPricer) UnitPrice(r limits.Resource) string {
	if price, ok := p[r]; ok {
		return price
	}
	return "0"
}

var (
	_ OveragePricer = (*ConfigPricer)(nil)
	_ OveragePricer = StaticPricer(nil)
)
