package core

import "strings"

// Category is the closed set of expense categories.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

var categories = []Category{
	CategoryFood, CategoryTransport, CategoryEntertainment, CategoryShopping,
	CategoryBills, CategoryHealthcare, CategoryEducation, CategoryOther,
}

// Categories returns every valid category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts an exact category name and rejects anything else.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", Invalid("category", "must be one of: %s", joinNames(categories))
	}
	return c, nil
}

// AssetType is the closed set of investment asset types.
type AssetType string

const (
	AssetStock      AssetType = "Stock"
	AssetMutualFund AssetType = "MutualFund"
	AssetFD         AssetType = "FD"
	AssetGold       AssetType = "Gold"
	AssetCrypto     AssetType = "Crypto"
	AssetBond       AssetType = "Bond"
	AssetOther      AssetType = "Other"
)

var assetTypes = []AssetType{
	AssetStock, AssetMutualFund, AssetFD, AssetGold, AssetCrypto, AssetBond, AssetOther,
}

func AssetTypes() []AssetType {
	out := make([]AssetType, len(assetTypes))
	copy(out, assetTypes)
	return out
}

func (a AssetType) Valid() bool {
	for _, known := range assetTypes {
		if a == known {
			return true
		}
	}
	return false
}

func ParseAssetType(s string) (AssetType, error) {
	a := AssetType(strings.TrimSpace(s))
	if !a.Valid() {
		return "", Invalid("asset_type", "must be one of: %s", joinNames(assetTypes))
	}
	return a, nil
}

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
