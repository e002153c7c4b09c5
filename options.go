/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strandsoft/docstore/errors"
)

// Options configures an opened store.
type Options struct {
	// Driver names the registered Remote implementation, e.g. "mem" or
	// "dynamodb".
	Driver string `yaml:"driver"`

	// Dataset every key must belong to.
	Dataset string `yaml:"dataset"`

	// Namespace is the default namespace for keys and queries.
	Namespace string `yaml:"namespace"`

	// Params carries driver-specific settings such as table or region.
	Params map[string]string `yaml:"params"`

	// AmbientTransactions makes one-shot writes join a transaction carried
	// in the context via datastore.WithTransaction.
	AmbientTransactions bool `yaml:"ambient_transactions"`
}

// DefaultOptions returns options for an in-memory store.
func DefaultOptions() Options {
	return Options{Driver: "mem", Dataset: "default"}
}

func (o Options) validate() error {
	if o.Driver == "" {
		return errors.New(errors.InvalidArgument, "driver must not be empty")
	}
	if o.Dataset == "" {
		return errors.New(errors.InvalidArgument, "dataset must not be empty")
	}
	return nil
}

// LoadOptions reads options from a YAML file.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("failed to read options file: %w", err)
	}
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse options file: %w", err)
	}
	return opts, nil
}

// OptionsFromEnv reads options from DOCSTORE_* environment variables.
// DOCSTORE_DRIVER, DOCSTORE_DATASET and DOCSTORE_NAMESPACE map directly;
// any DOCSTORE_PARAM_<NAME> becomes the lowercased param <name>.
func OptionsFromEnv() Options {
	opts := DefaultOptions()
	if v := os.Getenv("DOCSTORE_DRIVER"); v != "" {
		opts.Driver = v
	}
	if v := os.Getenv("DOCSTORE_DATASET"); v != "" {
		opts.Dataset = v
	}
	if v := os.Getenv("DOCSTORE_NAMESPACE"); v != "" {
		opts.Namespace = v
	}
	const prefix = "DOCSTORE_PARAM_"
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		if opts.Params == nil {
			opts.Params = make(map[string]string)
		}
		opts.Params[strings.ToLower(strings.TrimPrefix(name, prefix))] = value
	}
	return opts
}
