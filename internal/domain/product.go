package domain

import "fmt"

// Product is a retail item sold at the salon
type Product struct {
	ID       int64
	Name     string
	Category string
	Details  string
	Price    *float64
}

func (p *Product) Line() string {
	if p.Price == nil {
		return p.Name
	}
	return fmt.Sprintf("%s · $%.0f MXP", p.Name, *p.Price)
}
