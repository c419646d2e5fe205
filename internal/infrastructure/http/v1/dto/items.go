package dto

import (
	"time"

	"pharmstock/internal/core/apperror"
	"pharmstock/internal/core/types"
	"pharmstock/internal/domain/catalog"
	"pharmstock/internal/domain/pricing"
)

// --- Request DTOs ---

// PackagingUnitRequest defines one packaging unit on create/update.
// Prices travel as decimal strings to keep full precision.
type PackagingUnitRequest struct {
	Label                  string `json:"label" binding:"required"`
	BaseUnitsPerPackage    int64  `json:"baseUnitsPerPackage" binding:"required,min=1"`
	SellingPricePerPackage string `json:"sellingPricePerPackage,omitempty"`
}

// CreateItemRequest creates a catalog item.
type CreateItemRequest struct {
	Name             string                 `json:"name" binding:"required"`
	GenericName      string                 `json:"genericName,omitempty"`
	ReorderThreshold int64                  `json:"reorderThreshold" binding:"omitempty,min=0"`
	CostPricePerPack string                 `json:"costPricePerPack,omitempty"`
	PackagingUnits   []PackagingUnitRequest `json:"packagingUnits" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a domain item.
func (r *CreateItemRequest) ToEntity() (*catalog.Item, error) {
	units := make([]catalog.PackagingUnit, 0, len(r.PackagingUnits))
	for _, u := range r.PackagingUnits {
		price := types.ZeroMoney()
		if u.SellingPricePerPackage != "" {
			var err error
			price, err = types.NewMoneyFromString(u.SellingPricePerPackage)
			if err != nil {
				return nil, apperror.NewValidation("invalid selling price").
					WithDetail("label", u.Label).WithDetail("value", u.SellingPricePerPackage)
			}
		}
		units = append(units, catalog.PackagingUnit{
			Label:                  u.Label,
			BaseUnitsPerPackage:    u.BaseUnitsPerPackage,
			SellingPricePerPackage: price,
		})
	}

	item := catalog.NewItem(r.Name, units)
	item.GenericName = r.GenericName
	item.ReorderThreshold = r.ReorderThreshold
	if r.CostPricePerPack != "" {
		cost, err := types.NewMoneyFromString(r.CostPricePerPack)
		if err != nil {
			return nil, apperror.NewValidation("invalid cost price").
				WithDetail("value", r.CostPricePerPack)
		}
		item.CostPricePerPack = cost
	}
	return item, nil
}

// UpdateItemRequest updates item master data. Stock is not editable here;
// it moves only through the stock endpoints.
type UpdateItemRequest struct {
	Name             string                 `json:"name" binding:"required"`
	GenericName      string                 `json:"genericName,omitempty"`
	ReorderThreshold int64                  `json:"reorderThreshold" binding:"omitempty,min=0"`
	CostPricePerPack string                 `json:"costPricePerPack,omitempty"`
	PackagingUnits   []PackagingUnitRequest `json:"packagingUnits" binding:"required,min=1,dive"`
}

// ListItemsRequest filters item listings.
type ListItemsRequest struct {
	PaginationRequest
	Search   string `form:"search"`
	LowStock bool   `form:"lowStock"`
}

// --- Response DTOs ---

// PackagingUnitResponse is one packaging unit in item responses.
type PackagingUnitResponse struct {
	Label                  string      `json:"label"`
	BaseUnitsPerPackage    int64       `json:"baseUnitsPerPackage"`
	SellingPricePerPackage types.Money `json:"sellingPricePerPackage"`
}

// ItemResponse represents a catalog item.
type ItemResponse struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	GenericName       string                  `json:"genericName,omitempty"`
	BaseStockQuantity int64                   `json:"baseStockQuantity"`
	ReorderThreshold  int64                   `json:"reorderThreshold"`
	CostPricePerPack  types.Money             `json:"costPricePerPack"`
	LowStock          bool                    `json:"lowStock"`
	PackagingUnits    []PackagingUnitResponse `json:"packagingUnits"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// FromItem creates a response from a domain item.
func FromItem(item *catalog.Item) ItemResponse {
	units := make([]PackagingUnitResponse, 0, len(item.PackagingUnits))
	for _, u := range item.PackagingUnits {
		units = append(units, PackagingUnitResponse{
			Label:                  u.Label,
			BaseUnitsPerPackage:    u.BaseUnitsPerPackage,
			SellingPricePerPackage: u.SellingPricePerPackage,
		})
	}
	return ItemResponse{
		ID:                item.ID.String(),
		Name:              item.Name,
		GenericName:       item.GenericName,
		BaseStockQuantity: item.BaseStockQuantity,
		ReorderThreshold:  item.ReorderThreshold,
		CostPricePerPack:  item.CostPricePerPack,
		LowStock:          item.IsLowStock(),
		PackagingUnits:    units,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// FromItems converts a slice of domain items.
func FromItems(items []catalog.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, FromItem(&items[i]))
	}
	return out
}

// PricingResponse reports the per-base-unit cost and selling price with
// their provenance, so defaulted pack sizes and markup fallbacks are
// visible to the client.
type PricingResponse struct {
	ItemID             string              `json:"itemId"`
	CostPerBaseUnit    types.Money         `json:"costPerBaseUnit"`
	DefaultedPackSize  bool                `json:"defaultedPackSize"`
	SellingPerBaseUnit types.Money         `json:"sellingPerBaseUnit"`
	SellingPriceSource pricing.PriceSource `json:"sellingPriceSource"`
}

// NewPricingResponse builds the pricing view of an item.
func NewPricingResponse(item *catalog.Item, cost pricing.CostBasis, price pricing.SellingPrice) PricingResponse {
	return PricingResponse{
		ItemID:             item.ID.String(),
		CostPerBaseUnit:    cost.PerBaseUnit,
		DefaultedPackSize:  cost.DefaultedPackSize,
		SellingPerBaseUnit: price.PerBaseUnit,
		SellingPriceSource: price.Source,
	}
}
