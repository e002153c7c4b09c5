/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package datastore

import "time"

func timeToMicros(v Value) int64 {
	return v.payload.(time.Time).UnixMicro()
}

// ProjectionEntity is a read-only query result row whose property set may
// be a strict subset of the stored entity. A key-only projection has an
// empty property set but a populated key.
type ProjectionEntity struct {
	Entity
}

// GetInt returns an integer property. Projected timestamps are stored by
// the index as microseconds since the epoch, so a timestamp property is
// readable as its microsecond integer form.
func (e *ProjectionEntity) GetInt(name string) (int64, error) {
	v, err := e.GetValue(name)
	if err != nil {
		return 0, err
	}
	if v.typ == TypeTime {
		return timeToMicros(v), nil
	}
	return e.PartialEntity.GetInt(name)
}
