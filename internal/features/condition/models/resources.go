package models

// Prefetched is the metadata the backend resolves for an address before save.
type Prefetched struct {
	Address     string  `json:"address"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol,omitempty"`
	Description string  `json:"description,omitempty"`
	Logo        string  `json:"logo,omitempty"`
	Decimals    int     `json:"decimals,omitempty"`
	TotalSupply float64 `json:"totalSupply,omitempty"`
}

// Category is one option of the server provided category list of a type.
type Category struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Values returns the category values in server order.
func Values(categories []Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Value)
	}
	return out
}
