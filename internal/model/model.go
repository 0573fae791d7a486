// Package model defines the record types that flow through the pipeline.
//
// RawOrder is the nested shape read from the object store. Transform flattens
// it into one OrderFact plus dimension candidates; everything here is
// ephemeral, only the warehouse rows persist.
package model

// RawProduct is the product sub-object embedded in a source order.
type RawProduct struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
}

// RawCustomer is the customer sub-object embedded in a source order.
type RawCustomer struct {
	CustomerID int64  `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
}

// RawOrder is one element of the source document's top-level array.
type RawOrder struct {
	OrderID     int64       `json:"order_id"`
	OrderDate   string      `json:"order_date"`
	TotalAmount float64     `json:"total_amount"`
	Quantity    int64       `json:"quantity"`
	Product     RawProduct  `json:"product"`
	Customer    RawCustomer `json:"customer"`
}

// OrderFact is a flattened order. It keeps the natural keys of its dimension
// references; surrogate keys are resolved at load time, never stored here.
type OrderFact struct {
	OrderID     int64
	OrderDate   string
	TotalAmount float64
	Quantity    int64
	ProductID   int64
	CustomerID  int64
}

// ProductDim is a deduplicated product dimension candidate.
type ProductDim struct {
	ProductID int64
	Name      string
	Category  string
	Price     float64
}

// CustomerDim is a deduplicated customer dimension candidate.
type CustomerDim struct {
	CustomerID int64
	Name       string
	Email      string
	Address    string
}

// KeyMap maps a dimension natural key to its warehouse-assigned surrogate
// key. A KeyMap is built once per run after the dimension load completes and
// is treated as immutable by the fact loader.
type KeyMap map[int64]int64
