/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/strandsoft/docstore/datastore"
)

// DriverFunc constructs a Remote from driver-specific parameters.
type DriverFunc func(params map[string]string) (datastore.Remote, error)

var (
	driverMu sync.RWMutex
	drivers  = make(map[string]DriverFunc)
)

// RegisterDriver registers a Remote constructor under a driver name.
// Drivers call this from init; registering the same name twice panics to
// prevent accidental overrides.
func RegisterDriver(name string, fn DriverFunc) {
	driverMu.Lock()
	defer driverMu.Unlock()
	if _, exists := drivers[name]; exists {
		panic(fmt.Sprintf("driver registry: driver %q already registered", name))
	}
	drivers[name] = fn
}

// GetDriver returns the registered constructor for the given driver name.
func GetDriver(name string) (DriverFunc, error) {
	driverMu.RLock()
	defer driverMu.RUnlock()
	fn, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("driver registry: no driver registered for %q", name)
	}
	return fn, nil
}

// Drivers lists the registered driver names, sorted.
func Drivers() []string {
	driverMu.RLock()
	defer driverMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for name := range drivers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
