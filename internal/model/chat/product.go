package chat

import "encoding/json"

// Product is one catalog item returned by a product search.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Price       float64 `json:"price"`
	Gender      string  `json:"gender_affinity"`
	Stock       int     `json:"current_stock"`
}

// UnmarshalJSON accepts both a bare product object and a search hit
// that nests the fields under "_source".
func (p *Product) UnmarshalJSON(data []byte) error {
	var hit struct {
		Source json.RawMessage `json:"_source"`
	}
	if err := json.Unmarshal(data, &hit); err == nil && len(hit.Source) > 0 {
		data = hit.Source
	}

	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Product(v)
	return nil
}
