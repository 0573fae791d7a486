package warehouse

// TableSpec describes one warehouse table in dialect-neutral terms. Backends
// translate the generic column types and the serial primary key into their
// own DDL.
type TableSpec struct {
	Name       string
	PrimaryKey *PrimaryKeySpec
	Columns    []ColumnSpec
	Unique     [][]string
}

// PrimaryKeySpec is an auto-incrementing integer surrogate key.
type PrimaryKeySpec struct {
	Name string
	Type string // "serial"
}

// ColumnSpec is a non-key column. Types are generic: "bigint", "float",
// "text". References names "table(column)" for a foreign key.
type ColumnSpec struct {
	Name       string
	Type       string
	Nullable   bool
	References string
}

// Table and column names of the star schema.
const (
	TableProducts     = "products"
	TableCustomers    = "customers"
	TableOrders       = "orders"
	TableStgProducts  = "stg_products"
	TableStgCustomers = "stg_customers"

	ColProductSK  = "product_sk"
	ColProductID  = "product_id"
	ColCustomerSK = "customer_sk"
	ColCustomerID = "customer_id"
)

// ProductMerge and CustomerMerge are the SCD Type-1 merge specs for the two
// dimensions.
var (
	ProductMerge = MergeSpec{
		Target:      TableProducts,
		Staging:     TableStgProducts,
		KeyColumn:   ColProductID,
		AttrColumns: []string{"name", "category", "price"},
	}

	CustomerMerge = MergeSpec{
		Target:      TableCustomers,
		Staging:     TableStgCustomers,
		KeyColumn:   ColCustomerID,
		AttrColumns: []string{"name", "email", "address"},
	}
)

// FactColumns is the insert column list for the orders fact table.
var FactColumns = []string{
	"order_id", "order_date", "total_amount", "quantity", ColProductSK, ColCustomerSK,
}

// StarSchema returns the specs for all persistent and staging tables.
//
// Staging tables carry the natural key and attributes only: no surrogate
// column (keys are assigned by the target table) and no UNIQUE constraint
// (the transformer has already deduplicated, and staging is transient).
func StarSchema() []TableSpec {
	return []TableSpec{
		{
			Name:       TableProducts,
			PrimaryKey: &PrimaryKeySpec{Name: ColProductSK, Type: "serial"},
			Columns:    productColumns(),
			Unique:     [][]string{{ColProductID}},
		},
		{
			Name:       TableCustomers,
			PrimaryKey: &PrimaryKeySpec{Name: ColCustomerSK, Type: "serial"},
			Columns:    customerColumns(),
			Unique:     [][]string{{ColCustomerID}},
		},
		{
			Name:    TableStgProducts,
			Columns: productColumns(),
		},
		{
			Name:    TableStgCustomers,
			Columns: customerColumns(),
		},
		{
			Name: TableOrders,
			Columns: []ColumnSpec{
				{Name: "order_id", Type: "bigint"},
				{Name: "order_date", Type: "text"},
				{Name: "total_amount", Type: "float"},
				{Name: "quantity", Type: "bigint"},
				{Name: ColProductSK, Type: "bigint", References: TableProducts + "(" + ColProductSK + ")"},
				{Name: ColCustomerSK, Type: "bigint", References: TableCustomers + "(" + ColCustomerSK + ")"},
			},
		},
	}
}

func productColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: ColProductID, Type: "bigint"},
		{Name: "name", Type: "text"},
		{Name: "category", Type: "text", Nullable: true},
		{Name: "price", Type: "float"},
	}
}

func customerColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: ColCustomerID, Type: "bigint"},
		{Name: "name", Type: "text"},
		{Name: "email", Type: "text", Nullable: true},
		{Name: "address", Type: "text", Nullable: true},
	}
}
