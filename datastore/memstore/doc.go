/*
Package memstore is an in-memory Remote implementation, registered as the
"mem" driver. It keeps all entities in process and detects transaction
conflicts with a global write sequence, which makes it suitable for tests
and local development but not for persistence.
*/
package memstore
