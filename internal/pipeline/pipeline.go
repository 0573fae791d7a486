// Package pipeline sequences Extract, Transform and Load for the order
// warehouse.
//
// A run is a linear state machine with no branching on data content:
//
//	Idle -> Extracting -> Transforming -> LoadingDimensions ->
//	ResolvingKeys -> LoadingFacts -> Done
//
// Failed is terminal and reachable from any step. Every error is fatal to
// the run; nothing is retried between states. Runs are single-writer: two
// concurrent runs against the same warehouse would race on the staging
// replace-then-merge sequence.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/config"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/extract"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/metrics"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/model"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/source"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/transform"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

// State names a step of the run.
type State string

const (
	StateIdle              State = "idle"
	StateExtracting        State = "extracting"
	StateTransforming      State = "transforming"
	StateLoadingDimensions State = "loading_dimensions"
	StateResolvingKeys     State = "resolving_keys"
	StateLoadingFacts      State = "loading_facts"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Logger is the minimal logging interface used by the orchestrator.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Orchestrator wires the collaborators for a run. NewRepository is a seam:
// production uses warehouse.New, tests inject an in-memory backend.
type Orchestrator struct {
	Config config.Pipeline
	Store  source.Store
	Logger Logger

	NewRepository func(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error)
}

// Result summarizes a completed run.
type Result struct {
	Mode  config.Mode
	State State // StateDone, or StateFailed with the error returned alongside

	OrdersExtracted int
	ProductDims     int
	CustomerDims    int
	FactsLoaded     int64

	StageDurations map[State]time.Duration
}

// Run executes one pipeline run in the given mode. The warehouse connection
// is acquired before Extracting and released on every exit path. On failure
// the returned error wraps the originating error kind (ExtractionError,
// TransformError, LoadError, UnresolvedKeyError) in a StageError naming the
// failed state.
func (o *Orchestrator) Run(ctx context.Context, mode config.Mode) (Result, error) {
	logf := o.logger()
	res := Result{
		Mode:           mode,
		State:          StateIdle,
		StageDurations: make(map[State]time.Duration),
	}

	fail := func(state State, err error) (Result, error) {
		res.State = StateFailed
		metrics.IncRun(string(mode), false)
		logf("stage=%s status=error err=%v", state, err)
		return res, &StageError{State: state, Err: err}
	}

	newRepo := o.NewRepository
	if newRepo == nil {
		newRepo = warehouse.New
	}

	repo, err := newRepo(ctx, warehouse.Config{
		Kind: o.Config.Warehouse.Kind,
		DSN:  o.Config.Warehouse.DSN,
	})
	if err != nil {
		return fail(StateIdle, fmt.Errorf("open warehouse: %w", err))
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return fail(StateIdle, &warehouse.LoadError{Table: "schema", Op: "ensure", Err: err})
	}

	step := func(state State) func() {
		res.State = state
		start := time.Now()
		return func() {
			d := time.Since(start)
			res.StageDurations[state] = d
			metrics.ObserveStageDuration(string(state), d.Seconds())
			logf("stage=%s ok duration=%s", state, d.Truncate(time.Millisecond))
		}
	}

	// Extracting.
	done := step(StateExtracting)
	ext := &extract.Extractor{Store: o.Store}
	orders, err := ext.Extract(ctx, o.Config.Source.Bucket, o.Config.SourceKey(mode))
	if err != nil {
		return fail(StateExtracting, err)
	}
	res.OrdersExtracted = len(orders)
	metrics.AddRows(string(StateExtracting), len(orders))
	done()

	// Transforming.
	done = step(StateTransforming)
	facts, products, customers, err := transform.Transform(orders)
	if err != nil {
		return fail(StateTransforming, err)
	}
	res.ProductDims = len(products)
	res.CustomerDims = len(customers)
	done()

	// LoadingDimensions.
	done = step(StateLoadingDimensions)
	if err := o.loadDimensions(ctx, repo, mode, products, customers); err != nil {
		return fail(StateLoadingDimensions, err)
	}
	done()

	// ResolvingKeys.
	done = step(StateResolvingKeys)
	productKeys, customerKeys, err := resolveKeys(ctx, repo)
	if err != nil {
		return fail(StateResolvingKeys, err)
	}
	done()

	// LoadingFacts.
	done = step(StateLoadingFacts)
	n, err := loadFacts(ctx, repo, facts, productKeys, customerKeys, o.Config.EffectiveFactWriteMode(mode))
	if err != nil {
		return fail(StateLoadingFacts, err)
	}
	res.FactsLoaded = n
	metrics.AddRows(string(StateLoadingFacts), int(n))
	done()

	res.State = StateDone
	metrics.IncRun(string(mode), true)
	return res, nil
}

// loadDimensions appends (initial) or merges (incremental) the dimension
// record sets.
//
// Initial load assumes empty targets: a unique-constraint violation on
// append means the precondition does not hold and is reported, not retried.
// Incremental load is the SCD Type-1 path: stage, update matches in place,
// insert the rest. Surrogate keys of existing rows are never reassigned.
func (o *Orchestrator) loadDimensions(
	ctx context.Context,
	repo warehouse.Repository,
	mode config.Mode,
	products []model.ProductDim,
	customers []model.CustomerDim,
) error {
	pRows := productRows(products)
	cRows := customerRows(customers)

	if mode == config.ModeInitial {
		if _, err := repo.InsertRows(ctx, warehouse.TableProducts, warehouse.ProductMerge.Columns(), pRows); err != nil {
			return &warehouse.LoadError{Table: warehouse.TableProducts, Op: "append", Err: err}
		}
		if _, err := repo.InsertRows(ctx, warehouse.TableCustomers, warehouse.CustomerMerge.Columns(), cRows); err != nil {
			return &warehouse.LoadError{Table: warehouse.TableCustomers, Op: "append", Err: err}
		}
		return nil
	}

	if err := repo.MergeDimension(ctx, warehouse.ProductMerge, pRows); err != nil {
		return &warehouse.LoadError{Table: warehouse.TableProducts, Op: "merge", Err: err}
	}
	if err := repo.MergeDimension(ctx, warehouse.CustomerMerge, cRows); err != nil {
		return &warehouse.LoadError{Table: warehouse.TableCustomers, Op: "merge", Err: err}
	}
	return nil
}

// resolveKeys re-reads both dimension tables and returns the full natural
// key to surrogate key mappings: every row written this run plus all prior
// rows. The maps are built once and treated as immutable by the fact loader.
func resolveKeys(ctx context.Context, repo warehouse.Repository) (model.KeyMap, model.KeyMap, error) {
	productKeys, err := repo.SelectKeyValue(ctx, warehouse.TableProducts, warehouse.ColProductID, warehouse.ColProductSK)
	if err != nil {
		return nil, nil, &warehouse.LoadError{Table: warehouse.TableProducts, Op: "resolve", Err: err}
	}
	customerKeys, err := repo.SelectKeyValue(ctx, warehouse.TableCustomers, warehouse.ColCustomerID, warehouse.ColCustomerSK)
	if err != nil {
		return nil, nil, &warehouse.LoadError{Table: warehouse.TableCustomers, Op: "resolve", Err: err}
	}
	return model.KeyMap(productKeys), model.KeyMap(customerKeys), nil
}

// loadFacts joins fact records against the resolved surrogate keys and
// persists them. Resolution happens for the whole batch before anything is
// written: an unresolved key aborts with zero fact rows persisted.
func loadFacts(
	ctx context.Context,
	repo warehouse.Repository,
	facts []model.OrderFact,
	productKeys, customerKeys model.KeyMap,
	writeMode config.FactWriteMode,
) (int64, error) {
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		productSK, ok := productKeys[f.ProductID]
		if !ok {
			return 0, &UnresolvedKeyError{Table: warehouse.TableProducts, NaturalKey: f.ProductID, OrderID: f.OrderID}
		}
		customerSK, ok := customerKeys[f.CustomerID]
		if !ok {
			return 0, &UnresolvedKeyError{Table: warehouse.TableCustomers, NaturalKey: f.CustomerID, OrderID: f.OrderID}
		}
		rows = append(rows, []any{f.OrderID, f.OrderDate, f.TotalAmount, f.Quantity, productSK, customerSK})
	}

	var (
		n   int64
		err error
	)
	if writeMode == config.FactWriteReplace {
		n, err = repo.ReplaceRows(ctx, warehouse.TableOrders, warehouse.FactColumns, rows)
	} else {
		n, err = repo.InsertRows(ctx, warehouse.TableOrders, warehouse.FactColumns, rows)
	}
	if err != nil {
		return 0, &warehouse.LoadError{Table: warehouse.TableOrders, Op: string(writeMode), Err: err}
	}
	return n, nil
}

func productRows(products []model.ProductDim) [][]any {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.ProductID, p.Name, p.Category, p.Price})
	}
	return rows
}

func customerRows(customers []model.CustomerDim) [][]any {
	rows := make([][]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []any{c.CustomerID, c.Name, c.Email, c.Address})
	}
	return rows
}

func (o *Orchestrator) logger() func(format string, v ...any) {
	if o.Logger == nil {
		l := log.New(discardWriter{}, "", 0)
		return l.Printf
	}
	return o.Logger.Printf
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
