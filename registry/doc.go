/*
Package registry manages driver and kind registration for docstore.

Driver Registry:
Maps driver names to Remote constructors, populated by driver packages in
init():

	registry.RegisterDriver("mem", func(params map[string]string) (datastore.Remote, error) {
	    return memstore.New(), nil
	})

Kind Registry:
Associates Go types with the kind their entities are stored under:

	registry.RegisterKind[User]("User")

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
