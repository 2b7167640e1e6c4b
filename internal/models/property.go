// Package models defines data structures shared by the adapters, normalizer and orchestrator.
package models

import (
	"fmt"
	"slices"
)

// Provider identifies which jurisdiction adapter produced a record.
type Provider string

// Known providers.
const (
	ProviderSantaClara     Provider = "santa_clara_county"
	ProviderCityHall       Provider = "city_hall_systems"
	ProviderVermontNEMRC   Provider = "vermont_nemrc"
	ProviderVermontAxisGIS Provider = "vermont_axisgis"
	ProviderNYCFinance     Provider = "nyc_finance"
)

// Providers returns every known provider tag in a stable order.
func Providers() []Provider {
	return []Provider{
		ProviderSantaClara,
		ProviderCityHall,
		ProviderVermontNEMRC,
		ProviderVermontAxisGIS,
		ProviderNYCFinance,
	}
}

// Valid reports whether p is a known provider tag.
func (p Provider) Valid() bool {
	return slices.Contains(Providers(), p)
}

// Label returns a human-readable provider name.
func (p Provider) Label() string {
	switch p {
	case ProviderSantaClara:
		return "Santa Clara County"
	case ProviderCityHall:
		return "City Hall Systems"
	case ProviderVermontNEMRC:
		return "Vermont NEMRC"
	case ProviderVermontAxisGIS:
		return "Vermont AxisGIS"
	case ProviderNYCFinance:
		return "NYC Finance"
	}

	return string(p)
}

// Property identifies a real-world parcel on the static roster.
type Property struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Provider Provider `json:"provider" yaml:"-"`
	Address  string   `json:"address,omitempty" yaml:"address"`
	Parcel   string   `json:"parcel,omitempty" yaml:"parcel"`
	Unit     string   `json:"unit,omitempty" yaml:"unit"`
}

// Key returns the identifying value the adapter searches with.
func (p Property) Key() string {
	if p.Address != "" {
		return p.Address
	}

	return p.Parcel
}

// String returns a short description for logs.
func (p Property) String() string {
	label := p.Name
	if label == "" {
		label = p.Key()
	}

	if p.Unit != "" {
		return fmt.Sprintf("%s (unit %s)", label, p.Unit)
	}

	return label
}
