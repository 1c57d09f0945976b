// Package role defines the on-chain role data model, the strict parser that
// turns raw object content into typed state, and the pure readiness
// evaluation deciding which settlement action applies at a given instant.
package role
