package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/config"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/metrics"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/metrics/datadog"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/metrics/prompush"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/pipeline"
	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/source"

	// register all warehouse backends with the factory.
	// config specifies which to use but we build in support for all of them.
	_ "github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse/all"
)

// main loads the pipeline config, optionally initializes a metrics backend,
// and executes one run in the selected mode.
func main() {
	var (
		cfgPath           string
		modeFlg           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/orders.json", "pipeline config JSON path")
	flag.StringVar(&modeFlg, "mode", "initial", "run mode: initial | incremental")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	var mode config.Mode
	switch modeFlg {
	case "initial":
		mode = config.ModeInitial
	case "incremental":
		mode = config.ModeIncremental
	default:
		fatalf("unknown -mode %q (want initial or incremental)", modeFlg)
	}

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag -> env -> default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	jobName := p.Job
	if jobName == "" {
		jobName = "etl_job"
	}

	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			metrics.SetBackend(b)
			defer func() {
				if err := metrics.Flush(); err != nil {
					log.Printf("metrics: flush error: %v", err)
				}
			}()
		}

	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v", backendName, jobName)
			metrics.SetBackend(b)
			// Close stops the periodic flush loop and performs the final flush.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	store, err := source.New(p.Source)
	if err != nil {
		fatalf("%v", err)
	}

	orch := &pipeline.Orchestrator{Config: p, Store: store}
	if *verbose {
		orch.Logger = log.Default()
		log.Printf("pipeline: mode=%s source=%s bucket=%s key=%s warehouse=%s",
			mode, p.Source.Kind, p.Source.Bucket, p.SourceKey(mode), p.Warehouse.Kind)
	}

	start := time.Now()
	res, err := orch.Run(context.Background(), mode)
	if err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("run ok mode=%s orders=%d products=%d customers=%d facts=%d duration=%s",
		res.Mode, res.OrdersExtracted, res.ProductDims, res.CustomerDims, res.FactsLoaded,
		time.Since(start).Truncate(time.Millisecond))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
