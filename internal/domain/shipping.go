package domain

// Region is a shipping zone of the rate table.
type Region string

const (
	RegionDhaka        Region = "dhaka"
	RegionOutsideDhaka Region = "outside_dhaka"
)

func (r Region) Valid() bool {
	return r == RegionDhaka || r == RegionOutsideDhaka
}

// ShippingMode tells how the active shipping charge was determined.
type ShippingMode string

const (
	ShippingModeNone     ShippingMode = ""
	ShippingModeRegion   ShippingMode = "region"
	ShippingModeComputed ShippingMode = "computed"
)

// RateTable is the static region to charge table.
type RateTable struct {
	Dhaka        float64 `json:"dhaka"`
	OutsideDhaka float64 `json:"outsideDhaka"`
}

// Charge returns the table entry for region.
func (t RateTable) Charge(region Region) (float64, bool) {
	switch region {
	case RegionDhaka:
		return t.Dhaka, true
	case RegionOutsideDhaka:
		return t.OutsideDhaka, true
	default:
		return 0, false
	}
}

// AddressClassification is the server-side result of classifying a free-text address.
type AddressClassification struct {
	Region  Region  `json:"region"`
	IsDhaka bool    `json:"isDhaka"`
	Charge  float64 `json:"charge"`
}

// ShippingSelection is the single active shipping choice.
type ShippingSelection struct {
	Mode    ShippingMode `json:"mode"`
	Region  Region       `json:"region,omitempty"`
	IsDhaka bool         `json:"isDhaka,omitempty"`
	Charge  float64      `json:"charge"`
}

// Active reports whether a selection has been made.
func (s ShippingSelection) Active() bool {
	return s.Mode != ShippingModeNone
}
