/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

var (
	kindMu sync.RWMutex
	kinds  = make(map[reflect.Type]string)
)

// RegisterKind associates a Go type T with the kind its entities are
// stored under.
func RegisterKind[T any](kind string) {
	var zero T
	t := reflect.TypeOf(zero)

	kindMu.Lock()
	defer kindMu.Unlock()
	kinds[t] = kind
}

// GetKind retrieves the kind registered for type T, if any.
func GetKind[T any]() (string, bool) {
	var zero T
	t := reflect.TypeOf(zero)

	kindMu.RLock()
	defer kindMu.RUnlock()
	k, ok := kinds[t]
	return k, ok
}
