package model

// Product is the part of a catalog entry needed to price an order.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}
