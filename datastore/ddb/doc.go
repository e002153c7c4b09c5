/*
Package ddb implements the Remote interface on AWS DynamoDB, registered as
the "dynamodb" driver.

The store uses a single-table design:
  - pk/sk: the entity key string
  - gsi1pk/gsi1sk: dataset|namespace|kind partition for kind queries
  - entity: the encoded entity (key structure plus typed properties)
  - rev: an opaque revision rewritten on every put

Transactions keep their snapshot client-side as the set of revisions read
through the handle. Commit turns every read into a DynamoDB condition
(rev equality, or absence for keys observed missing) and applies all
mutations with one TransactWriteItems call, so a concurrent change to
anything the transaction read or wrote cancels the whole commit and
surfaces as an Aborted error.

Id allocation reserves blocks from per-dataset counter items with an
atomic ADD update.

Driver parameters: table (required), region, access_key, secret_key,
endpoint (for local stacks).
*/
package ddb
