package product

// Product is the slice of the remote catalog this service cares about: the
// current name and price of a referenced product.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Index maps products by id, keeping the first record per id when the remote
// service returns duplicates.
func Index(products []Product) map[int64]Product {
	index := make(map[int64]Product, len(products))
	for _, p := range products {
		if _, ok := index[p.ID]; !ok {
			index[p.ID] = p
		}
	}

	return index
}
