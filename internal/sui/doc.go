// Package sui implements the ledger client used by the settlement agent: a
// JSON-RPC client against a Sui fullnode, the ed25519 transaction signer and
// the response types for event queries, object reads and transaction
// execution.
package sui
