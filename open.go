/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"log/slog"

	"github.com/strandsoft/docstore/datastore"
	"github.com/strandsoft/docstore/registry"
)

// Open constructs a client for the configured driver. The driver package
// must be linked in, typically with a blank import.
func Open(opts Options) (*datastore.DataStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	driver, err := registry.GetDriver(opts.Driver)
	if err != nil {
		return nil, err
	}
	remote, err := driver(opts.Params)
	if err != nil {
		return nil, err
	}
	var dsOpts []datastore.Option
	if opts.AmbientTransactions {
		dsOpts = append(dsOpts, datastore.WithCoordinator(datastore.ContextCoordinator{}))
	}
	ds, err := datastore.New(remote, datastore.Config{
		Dataset:   opts.Dataset,
		Namespace: opts.Namespace,
	}, dsOpts...)
	if err != nil {
		return nil, err
	}
	slog.Info("opened store",
		"driver", opts.Driver,
		"dataset", opts.Dataset,
		"namespace", opts.Namespace)
	return ds, nil
}
