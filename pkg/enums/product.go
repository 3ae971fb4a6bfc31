package enums

import "fmt"

// ProductCategory represents the canonical product categories supported by the catalog.
type ProductCategory string

const (
	ProductCategoryMobileAccessory ProductCategory = "mobile_accessory"
	ProductCategoryAudio           ProductCategory = "audio"
	ProductCategoryComputing       ProductCategory = "computing"
	ProductCategoryWearable        ProductCategory = "wearable"
	ProductCategorySmartHome       ProductCategory = "smart_home"
	ProductCategoryGaming          ProductCategory = "gaming"
	ProductCategoryStorage         ProductCategory = "storage"
	ProductCategoryNetworking      ProductCategory = "networking"
	ProductCategoryPower           ProductCategory = "power"
	ProductCategoryCablesAdapters  ProductCategory = "cables_adapters"
)

var validProductCategories = []ProductCategory{
	ProductCategoryMobileAccessory,
	ProductCategoryAudio,
	ProductCategoryComputing,
	ProductCategoryWearable,
	ProductCategorySmartHome,
	ProductCategoryGaming,
	ProductCategoryStorage,
	ProductCategoryNetworking,
	ProductCategoryPower,
	ProductCategoryCablesAdapters,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
