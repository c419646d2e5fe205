// Package units converts between an item's packaging units and base units.
//
// Resolution runs an ordered list of match strategies: the item's configured
// packaging units first, then a synonym set for the base unit, then a table
// of generic defaults. The fallback keeps a mistyped or unconfigured unit
// label from blocking a sale; such conversions resolve at a lower confidence
// so they can be audited, and strict mode turns them into hard errors.
package units

import (
	"context"
	"strings"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/domain/catalog"
	"pharmstock/pkg/logger"
)

// Confidence grades how a unit label was resolved.
type Confidence string

const (
	// ConfidenceExact means the label matched a configured packaging unit.
	ConfidenceExact Confidence = "exact"
	// ConfidenceSynonym means the label matched a base-unit synonym.
	ConfidenceSynonym Confidence = "synonym"
	// ConfidenceFallback means the generic default table was used.
	ConfidenceFallback Confidence = "fallback"
)

// Resolution is the outcome of matching a unit label.
type Resolution struct {
	// Factor is base units per one count of the resolved unit.
	Factor int64
	// Confidence grades the match.
	Confidence Confidence
	// Matched is the canonical label the input resolved to.
	Matched string
}

// baseSynonyms all mean one base unit.
var baseSynonyms = map[string]struct{}{
	"tablet": {}, "tab": {}, "tabs": {}, "unit": {}, "piece": {}, "pcs": {}, "capsule": {},
}

// genericDefaults is the fixed fallback table for unconfigured labels.
var genericDefaults = map[string]int64{
	"strip":  10,
	"box":    100,
	"pack":   30,
	"bottle": 1,
	"vial":   1,
}

// matchStrategy attempts to resolve a label against one source.
// Strategies run in order; the first match wins.
type matchStrategy func(item *catalog.Item, label string) (Resolution, bool)

func matchConfiguredUnit(item *catalog.Item, label string) (Resolution, bool) {
	if u := item.UnitByLabel(label); u != nil {
		return Resolution{Factor: u.BaseUnitsPerPackage, Confidence: ConfidenceExact, Matched: u.Label}, true
	}
	return Resolution{}, false
}

func matchBaseSynonym(_ *catalog.Item, label string) (Resolution, bool) {
	if _, ok := baseSynonyms[label]; ok {
		return Resolution{Factor: 1, Confidence: ConfidenceSynonym, Matched: label}, true
	}
	return Resolution{}, false
}

func matchGenericDefault(_ *catalog.Item, label string) (Resolution, bool) {
	if factor, ok := genericDefaults[label]; ok {
		return Resolution{Factor: factor, Confidence: ConfidenceFallback, Matched: label}, true
	}
	return Resolution{}, false
}

var strategies = []matchStrategy{
	matchConfiguredUnit,
	matchBaseSynonym,
	matchGenericDefault,
}

// Converter resolves unit labels for items.
type Converter struct {
	// strict makes an unresolvable or fallback-resolved label a hard error.
	strict bool
}

// NewConverter creates a converter. With strict=true, labels that only the
// generic default table could resolve are rejected with UnknownUnit instead
// of converted.
func NewConverter(strict bool) *Converter {
	return &Converter{strict: strict}
}

// Resolve matches a unit label for the item, case-insensitively.
func (c *Converter) Resolve(item *catalog.Item, label string) (Resolution, error) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return Resolution{}, apperror.NewValidation("unit label is required")
	}

	for _, match := range strategies {
		if res, ok := match(item, normalized); ok {
			if c.strict && res.Confidence == ConfidenceFallback {
				return Resolution{}, apperror.NewUnknownUnit(item.ID.String(), label)
			}
			return res, nil
		}
	}

	return Resolution{}, apperror.NewUnknownUnit(item.ID.String(), label)
}

// ToBaseUnits converts a count of the given unit to base units.
// Fallback resolutions are logged at Warn so they can be audited later.
func (c *Converter) ToBaseUnits(ctx context.Context, item *catalog.Item, label string, count int64) (int64, Resolution, error) {
	if count <= 0 {
		return 0, Resolution{}, apperror.NewValidation("count must be positive")
	}

	res, err := c.Resolve(item, label)
	if err != nil {
		return 0, Resolution{}, err
	}

	if res.Confidence == ConfidenceFallback {
		logger.Warn(ctx, "unit label resolved via generic default table",
			"item_id", item.ID,
			"label", label,
			"factor", res.Factor,
		)
	}

	return count * res.Factor, res, nil
}

// Breakdown is a display decomposition of a base-unit count.
type Breakdown struct {
	Boxes  int64 `json:"boxes"`
	Strips int64 `json:"strips"`
	Loose  int64 `json:"loose"`
}

// FromBaseUnits decomposes a base-unit count largest unit first: divide by
// the box size, remainder by the strip size, remainder is loose units.
// Deterministic, used purely for display, never for stock mutation.
func FromBaseUnits(item *catalog.Item, baseCount int64) Breakdown {
	if baseCount <= 0 {
		return Breakdown{}
	}

	boxSize, stripSize := packSizes(item)

	var b Breakdown
	remainder := baseCount
	if boxSize > 1 {
		b.Boxes = remainder / boxSize
		remainder = remainder % boxSize
	}
	if stripSize > 1 {
		b.Strips = remainder / stripSize
		remainder = remainder % stripSize
	}
	b.Loose = remainder
	return b
}

// packSizes picks the two largest configured multi-unit packages as the
// box and strip sizes, falling back to the generic defaults when the item
// does not configure them.
func packSizes(item *catalog.Item) (boxSize, stripSize int64) {
	boxSize, stripSize = genericDefaults["box"], genericDefaults["strip"]

	var sizes []int64
	for _, u := range item.PackagingUnits {
		if u.BaseUnitsPerPackage > 1 {
			sizes = append(sizes, u.BaseUnitsPerPackage)
		}
	}
	if len(sizes) == 0 {
		return boxSize, stripSize
	}

	largest, second := int64(0), int64(0)
	for _, s := range sizes {
		switch {
		case s > largest:
			second = largest
			largest = s
		case s > second && s < largest:
			second = s
		}
	}

	boxSize = largest
	if second > 1 {
		stripSize = second
	} else if stripSize >= boxSize {
		stripSize = 1
	}
	return boxSize, stripSize
}
