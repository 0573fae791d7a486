package config

import "fmt"

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path addresses the offending field using
// the JSON structure (e.g. "warehouse.fact_write_mode").
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func errorf(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, a...)}
}

func warnf(path, format string, a ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, a...)}
}

// ValidatePipeline checks a decoded pipeline config and returns all issues
// found. Callers decide whether warnings are acceptable; any error-severity
// issue means the config must not be run.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if p.Job == "" {
		issues = append(issues, warnf("job", "job name is empty; metrics will use a default job tag"))
	}

	switch p.Source.Kind {
	case "s3":
		if p.Source.S3 == nil || p.Source.S3.Region == "" {
			issues = append(issues, errorf("source.s3.region", "region is required for source.kind=s3"))
		}
	case "file":
		// bucket is interpreted as a directory for the file source
	case "":
		issues = append(issues, errorf("source.kind", "source.kind is required"))
	default:
		issues = append(issues, errorf("source.kind", "unknown source kind %q", p.Source.Kind))
	}

	if p.Source.Kind != "" {
		if p.Source.Bucket == "" {
			issues = append(issues, errorf("source.bucket", "bucket is required"))
		}
		if p.Source.InitialKey == "" && p.Source.IncrementalKey == "" {
			issues = append(issues, errorf("source", "at least one of initial_key or incremental_key is required"))
		}
	}

	switch p.Warehouse.Kind {
	case "postgres", "sqlite", "mssql":
	case "":
		issues = append(issues, errorf("warehouse.kind", "warehouse.kind is required"))
	default:
		issues = append(issues, errorf("warehouse.kind", "unknown warehouse kind %q", p.Warehouse.Kind))
	}
	if p.Warehouse.DSN == "" {
		issues = append(issues, errorf("warehouse.dsn", "dsn is required"))
	}

	switch p.Warehouse.FactWriteMode {
	case "", FactWriteAppend, FactWriteReplace:
	default:
		issues = append(issues, errorf("warehouse.fact_write_mode",
			"must be %q or %q, got %q", FactWriteReplace, FactWriteAppend, p.Warehouse.FactWriteMode))
	}

	return issues
}

// HasError reports whether any issue is of error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
