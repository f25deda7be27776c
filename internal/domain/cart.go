package domain

// LineKey identifies a cart line. A cart never holds two lines with the same key.
type LineKey struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
}

// Variation is a purchasable configuration of a product as reported by the catalog.
type Variation struct {
	ID            string   `json:"id"`
	Price         *float64 `json:"price,omitempty"`
	SalePrice     *float64 `json:"salePrice,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Volume        string   `json:"volume,omitempty"`
}

// Product is the catalog record merged into a line after the cart is loaded.
type Product struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug,omitempty"`
	ImageURL   string      `json:"imageUrl,omitempty"`
	Price      *float64    `json:"price,omitempty"`
	Variations []Variation `json:"variations,omitempty"`
}

// FindVariation returns the variation with the given id.
func (p Product) FindVariation(id string) (Variation, bool) {
	for _, v := range p.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// CartLine is the local view of one product-variant entry of the remote cart.
type CartLine struct {
	ProductID      string     `json:"productId"`
	VariantID      string     `json:"variantId"`
	Quantity       int        `json:"quantity"`
	SnapshotPrice  *float64   `json:"snapshotPrice,omitempty"`
	Variation      *Variation `json:"variation,omitempty"`
	Product        *Product   `json:"product,omitempty"`
	DetailsPending bool       `json:"detailsPending"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// StockLimit reports the known stock bound of the line's variation.
func (l CartLine) StockLimit() (int, bool) {
	if l.Variation == nil || l.Variation.StockQuantity == nil {
		return 0, false
	}
	return *l.Variation.StockQuantity, true
}

// Clone returns a deep copy so snapshots never alias live state.
func (l CartLine) Clone() CartLine {
	out := l
	if l.SnapshotPrice != nil {
		out.SnapshotPrice = Float(*l.SnapshotPrice)
	}
	if l.Variation != nil {
		v := cloneVariation(*l.Variation)
		out.Variation = &v
	}
	if l.Product != nil {
		p := *l.Product
		p.Price = cloneFloat(p.Price)
		if l.Product.Variations != nil {
			p.Variations = make([]Variation, len(l.Product.Variations))
			for i, v := range l.Product.Variations {
				p.Variations[i] = cloneVariation(v)
			}
		}
		out.Product = &p
	}
	return out
}

// RemoteCart is the cart document returned by the cart service.
type RemoteCart struct {
	Items []RemoteCartItem `json:"items"`
}

// RemoteCartItem is one item of RemoteCart. ProductData carries the price captured when the
// item was added.
type RemoteCartItem struct {
	ProductID   string             `json:"productId"`
	VariantID   string             `json:"variantId"`
	Quantity    int                `json:"quantity"`
	TotalPrice  *float64           `json:"totalPrice,omitempty"`
	ProductData *RemoteProductData `json:"productData,omitempty"`
}

type RemoteProductData struct {
	Name     string   `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

func cloneVariation(v Variation) Variation {
	v.Price = cloneFloat(v.Price)
	v.SalePrice = cloneFloat(v.SalePrice)
	if v.StockQuantity != nil {
		v.StockQuantity = Int(*v.StockQuantity)
	}
	return v
}
