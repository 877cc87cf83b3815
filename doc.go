// Package apothecary maps Go structs onto DynamoDB-style key/value tables.
//
// Each entity type is described by a Schema: the table it lives in, its partition key, an optional
// sort key, and the attributes it declares. A Table[T] binds a Schema to a Store and provides
// typed Get, Put, Update, Delete and a lazy, paginated Scan with an optional server-side Filter.
//
// Three Store implementations are provided:
//   - DynamoStore talks to Amazon DynamoDB (or DynamoDB Local) through the AWS SDK v2.
//   - MemStore keeps tables in memory, ordered by key. It is used by tests.
//   - BadgerStore keeps tables in a local Badger database for offline development.
//
// Items carry two discriminator attributes, _entity and _version, so a stored item can be checked
// against the Schema that decodes it. The Registry lists every Schema used by an application and
// can create (or recreate) their tables in one call.
package apothecary
