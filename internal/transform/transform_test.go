package transform

import (
	"errors"
	"testing"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/model"
)

func validOrder(orderID, productID, customerID int64) model.RawOrder {
	return model.RawOrder{
		OrderID:     orderID,
		OrderDate:   "2024-03-01",
		TotalAmount: 25.50,
		Quantity:    2,
		Product: model.RawProduct{
			ProductID: productID,
			Name:      "widget",
			Category:  "tools",
			Price:     10.00,
		},
		Customer: model.RawCustomer{
			CustomerID: customerID,
			Name:       "Ada",
			Email:      "ada@example.com",
			Address:    "1 Main St",
		},
	}
}

func TestTransform_FlattensOneFactPerOrder(t *testing.T) {
	t.Parallel()

	orders := []model.RawOrder{
		validOrder(1, 101, 55),
		validOrder(2, 102, 56),
	}

	facts, products, customers, err := Transform(orders)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("facts = %d, want 2", len(facts))
	}
	if len(products) != 2 || len(customers) != 2 {
		t.Fatalf("dims = %d products, %d customers, want 2 each", len(products), len(customers))
	}

	f := facts[0]
	if f.OrderID != 1 || f.ProductID != 101 || f.CustomerID != 55 {
		t.Fatalf("fact[0] = %+v, want order 1 -> product 101, customer 55", f)
	}
	if f.OrderDate != "2024-03-01" || f.TotalAmount != 25.50 || f.Quantity != 2 {
		t.Fatalf("fact[0] attributes not copied: %+v", f)
	}
}

func TestTransform_DedupeKeepsLastOccurrence(t *testing.T) {
	t.Parallel()

	// Two orders reference product 101 with differing price; the later
	// occurrence must win.
	first := validOrder(1, 101, 55)
	first.Product.Price = 10.00
	second := validOrder(2, 101, 55)
	second.Product.Price = 12.00
	second.Customer.Address = "2 New St"

	_, products, customers, err := Transform([]model.RawOrder{first, second})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if len(products) != 1 {
		t.Fatalf("products = %d, want 1 after dedupe", len(products))
	}
	if products[0].Price != 12.00 {
		t.Fatalf("product 101 price = %v, want 12.00 (last occurrence)", products[0].Price)
	}

	if len(customers) != 1 {
		t.Fatalf("customers = %d, want 1 after dedupe", len(customers))
	}
	if customers[0].Address != "2 New St" {
		t.Fatalf("customer 55 address = %q, want last occurrence", customers[0].Address)
	}
}

func TestTransform_DedupePreservesFirstSeenOrder(t *testing.T) {
	t.Parallel()

	orders := []model.RawOrder{
		validOrder(1, 101, 55),
		validOrder(2, 102, 56),
		validOrder(3, 101, 55), // repeats both keys
	}

	_, products, _, err := Transform(orders)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[0].ProductID != 101 || products[1].ProductID != 102 {
		t.Fatalf("product order = [%d %d], want [101 102]", products[0].ProductID, products[1].ProductID)
	}
}

func TestTransform_InvalidRecordAbortsWholeBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*model.RawOrder)
		wantField string
	}{
		{"missing order_id", func(o *model.RawOrder) { o.OrderID = 0 }, "order_id"},
		{"missing order_date", func(o *model.RawOrder) { o.OrderDate = "" }, "order_date"},
		{"bad date layout", func(o *model.RawOrder) { o.OrderDate = "03/01/2024" }, "order_date"},
		{"zero quantity", func(o *model.RawOrder) { o.Quantity = 0 }, "quantity"},
		{"negative amount", func(o *model.RawOrder) { o.TotalAmount = -1 }, "total_amount"},
		{"missing product id", func(o *model.RawOrder) { o.Product.ProductID = 0 }, "product.product_id"},
		{"missing product name", func(o *model.RawOrder) { o.Product.Name = "" }, "product.name"},
		{"missing customer id", func(o *model.RawOrder) { o.Customer.CustomerID = 0 }, "customer.customer_id"},
		{"missing customer name", func(o *model.RawOrder) { o.Customer.Name = "" }, "customer.name"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bad := validOrder(2, 102, 56)
			tc.mutate(&bad)
			orders := []model.RawOrder{validOrder(1, 101, 55), bad}

			facts, products, customers, err := Transform(orders)
			if err == nil {
				t.Fatalf("Transform: want error, got none")
			}

			var terr *TransformError
			if !errors.As(err, &terr) {
				t.Fatalf("error type = %T, want *TransformError", err)
			}
			if terr.Index != 1 {
				t.Fatalf("Index = %d, want 1", terr.Index)
			}
			if terr.Field != tc.wantField {
				t.Fatalf("Field = %q, want %q", terr.Field, tc.wantField)
			}

			// No partial output on failure.
			if facts != nil || products != nil || customers != nil {
				t.Fatalf("partial output on error: %v %v %v", facts, products, customers)
			}
		})
	}
}

func TestTransform_EmptyBatch(t *testing.T) {
	t.Parallel()

	facts, products, customers, err := Transform(nil)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(facts) != 0 || len(products) != 0 || len(customers) != 0 {
		t.Fatalf("empty batch produced records: %d %d %d", len(facts), len(products), len(customers))
	}
}
