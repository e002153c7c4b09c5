/*
Package docstore is a typed client for schemaless document stores, built
around immutable keys, values and entities, structured and textual queries,
and staged mutations with batch and optimistic-concurrency transaction
semantics.

The core model lives in the datastore package; this package wires a
configured driver to a ready client and adds typed conveniences.

Basic Usage:

	// Open a store for the configured driver
	ds, err := docstore.Open(docstore.Options{
	    Driver:  "mem",
	    Dataset: "my-dataset",
	})

	// Write and read entities
	key, _ := ds.NewKeyFactory("User").NewKeyWithName("alice")
	e, _ := datastore.NewEntityBuilder(key).SetString("email", "alice@example.com").Build()
	err = ds.Put(ctx, e)
	got, err := ds.Get(ctx, key)

	// Or use the typed layer
	registry.RegisterKind[User]("User")
	users, _ := docstore.NewTypedStore[User](ds)
	err = users.Put(ctx, "alice", User{Email: "alice@example.com"})

Drivers register themselves when their package is linked in:

	import _ "github.com/strandsoft/docstore/datastore/memstore"
	import _ "github.com/strandsoft/docstore/datastore/ddb"
*/
package docstore
