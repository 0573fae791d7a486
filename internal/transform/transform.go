// Package transform flattens nested order records into normalized fact and
// dimension record sets.
package transform

import (
	"fmt"
	"time"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/model"
)

// TransformError reports a record that failed validation. The whole batch is
// aborted on the first failure: downstream loads assume a complete,
// consistent record set, so a partial transform is never emitted.
type TransformError struct {
	Index int    // position of the order in the source document
	Field string // offending field
	Msg   string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform: order %d: field %s: %s", e.Index, e.Field, e.Msg)
}

const dateLayout = "2006-01-02"

// Transform flattens each nested order into one fact record and contributes
// one product and one customer dimension candidate. Dimension candidates are
// deduplicated by natural key with last-occurrence-wins semantics: if a
// customer's address changed between two orders in the same document, the
// later order's address is kept.
func Transform(orders []model.RawOrder) ([]model.OrderFact, []model.ProductDim, []model.CustomerDim, error) {
	facts := make([]model.OrderFact, 0, len(orders))

	// Dedupe maps point at the slot in the output slice so a repeated key
	// overwrites in place and keeps first-seen ordering of the keys.
	products := make([]model.ProductDim, 0, len(orders))
	customers := make([]model.CustomerDim, 0, len(orders))
	productSlot := make(map[int64]int, len(orders))
	customerSlot := make(map[int64]int, len(orders))

	for i, o := range orders {
		if err := validateOrder(i, o); err != nil {
			return nil, nil, nil, err
		}

		facts = append(facts, model.OrderFact{
			OrderID:     o.OrderID,
			OrderDate:   o.OrderDate,
			TotalAmount: o.TotalAmount,
			Quantity:    o.Quantity,
			ProductID:   o.Product.ProductID,
			CustomerID:  o.Customer.CustomerID,
		})

		p := model.ProductDim{
			ProductID: o.Product.ProductID,
			Name:      o.Product.Name,
			Category:  o.Product.Category,
			Price:     o.Product.Price,
		}
		if slot, ok := productSlot[p.ProductID]; ok {
			products[slot] = p
		} else {
			productSlot[p.ProductID] = len(products)
			products = append(products, p)
		}

		c := model.CustomerDim{
			CustomerID: o.Customer.CustomerID,
			Name:       o.Customer.Name,
			Email:      o.Customer.Email,
			Address:    o.Customer.Address,
		}
		if slot, ok := customerSlot[c.CustomerID]; ok {
			customers[slot] = c
		} else {
			customerSlot[c.CustomerID] = len(customers)
			customers = append(customers, c)
		}
	}

	return facts, products, customers, nil
}

func validateOrder(i int, o model.RawOrder) error {
	if o.OrderID <= 0 {
		return &TransformError{Index: i, Field: "order_id", Msg: "missing or non-positive"}
	}
	if o.OrderDate == "" {
		return &TransformError{Index: i, Field: "order_date", Msg: "missing"}
	}
	if _, err := time.Parse(dateLayout, o.OrderDate); err != nil {
		return &TransformError{Index: i, Field: "order_date", Msg: fmt.Sprintf("want %s, got %q", dateLayout, o.OrderDate)}
	}
	if o.Quantity <= 0 {
		return &TransformError{Index: i, Field: "quantity", Msg: "missing or non-positive"}
	}
	if o.TotalAmount < 0 {
		return &TransformError{Index: i, Field: "total_amount", Msg: "negative"}
	}
	if o.Product.ProductID <= 0 {
		return &TransformError{Index: i, Field: "product.product_id", Msg: "missing or non-positive"}
	}
	if o.Product.Name == "" {
		return &TransformError{Index: i, Field: "product.name", Msg: "missing"}
	}
	if o.Customer.CustomerID <= 0 {
		return &TransformError{Index: i, Field: "customer.customer_id", Msg: "missing or non-positive"}
	}
	if o.Customer.Name == "" {
		return &TransformError{Index: i, Field: "customer.name", Msg: "missing"}
	}
	return nil
}
