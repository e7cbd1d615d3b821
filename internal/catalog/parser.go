// Package catalog reads YAML price sheets: bulk tier tables for many scopes
// maintained outside the admin API.
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type PriceSheet struct {
	Sheet  SheetConfig   `yaml:"sheet"`
	Tables []TableConfig `yaml:"tables"`
}

type SheetConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// TableConfig is the tier table of one scope. Scope holds the client or group
// id and is omitted for STANDARD tables.
type TableConfig struct {
	Subject       string       `yaml:"subject"`
	Source        string       `yaml:"source"`
	Scope         string       `yaml:"scope"`
	Specification string       `yaml:"specification"`
	Tiers         []TierConfig `yaml:"tiers"`
}

type TierConfig struct {
	Min          int              `yaml:"min"`
	Max          *int             `yaml:"max"`
	Weight       int              `yaml:"weight"`
	Price        *int64           `yaml:"price"`
	Prices       map[string]int64 `yaml:"prices"`
	BasePages    int              `yaml:"base_pages"`
	BasePrice    *int64           `yaml:"base_price"`
	PricePerPage int64            `yaml:"price_per_page"`
	Ranges       []RangeConfig    `yaml:"ranges"`
}

// RangeConfig bounds are decimal strings so "0.5" survives YAML untouched.
// An empty Upper is unbounded.
type RangeConfig struct {
	Label string `yaml:"label"`
	Lower string `yaml:"lower"`
	Upper string `yaml:"upper"`
	Price int64  `yaml:"price"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*PriceSheet, error) {
	var sheet PriceSheet
	if err := yaml.Unmarshal(content, &sheet); err != nil {
		return nil, fmt.Errorf("failed to parse price sheet YAML: %w", err)
	}
	return &sheet, nil
}
