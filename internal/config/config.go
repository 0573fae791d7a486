// Package config defines the pipeline configuration surface.
//
// Config is plain JSON on disk. Secrets (DSN, object store credentials) may
// reference environment variables with ${VAR} syntax; Load expands them so
// config files can be committed without credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mode selects which run the orchestrator performs.
type Mode string

const (
	ModeInitial     Mode = "initial"
	ModeIncremental Mode = "incremental"
)

// FactWriteMode controls how fact rows are written in incremental runs.
// Initial runs always replace the fact table regardless of this setting.
type FactWriteMode string

const (
	FactWriteReplace FactWriteMode = "replace"
	FactWriteAppend  FactWriteMode = "append"
)

// Pipeline is the root configuration document.
type Pipeline struct {
	Job       string    `json:"job"`
	Source    Source    `json:"source"`
	Warehouse Warehouse `json:"warehouse"`
}

// Source identifies the object store and the documents for each mode.
type Source struct {
	// Kind is a registered source backend: "s3" or "file".
	Kind   string `json:"kind"`
	Bucket string `json:"bucket"`

	// InitialKey and IncrementalKey name the order documents fetched for the
	// respective run modes.
	InitialKey     string `json:"initial_key"`
	IncrementalKey string `json:"incremental_key"`

	S3 *S3 `json:"s3,omitempty"`
}

// S3 holds object store connection settings. Credentials typically arrive
// via ${VAR} expansion; empty values fall back to the SDK default chain.
type S3 struct {
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty"`
}

// Warehouse selects the relational backend and its write behavior.
type Warehouse struct {
	// Kind is a registered warehouse backend: "postgres", "sqlite" or "mssql".
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`

	// FactWriteMode applies to incremental runs only. Empty means "append".
	FactWriteMode FactWriteMode `json:"fact_write_mode,omitempty"`
}

// Load reads and decodes a pipeline config file, expanding ${VAR} references
// in the DSN and object store credentials.
func Load(path string) (Pipeline, error) {
	var p Pipeline

	f, err := os.Open(path)
	if err != nil {
		return p, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decode config %s: %w", path, err)
	}

	p.Warehouse.DSN = os.ExpandEnv(p.Warehouse.DSN)
	if p.Source.S3 != nil {
		p.Source.S3.Region = os.ExpandEnv(p.Source.S3.Region)
		p.Source.S3.Endpoint = os.ExpandEnv(p.Source.S3.Endpoint)
		p.Source.S3.AccessKeyID = os.ExpandEnv(p.Source.S3.AccessKeyID)
		p.Source.S3.SecretAccessKey = os.ExpandEnv(p.Source.S3.SecretAccessKey)
	}

	return p, nil
}

// SourceKey returns the document key for the given run mode.
func (p Pipeline) SourceKey(mode Mode) string {
	if mode == ModeIncremental {
		return p.Source.IncrementalKey
	}
	return p.Source.InitialKey
}

// EffectiveFactWriteMode resolves the fact write behavior for a run.
// Initial loads own the fact table and always replace it; incremental loads
// honor the configured mode and default to append.
func (p Pipeline) EffectiveFactWriteMode(mode Mode) FactWriteMode {
	if mode == ModeInitial {
		return FactWriteReplace
	}
	if p.Warehouse.FactWriteMode == "" {
		return FactWriteAppend
	}
	return p.Warehouse.FactWriteMode
}
