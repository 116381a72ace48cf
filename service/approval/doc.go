// Package approval resolves pending callbacks automatically in local runs,
// either unconditionally or according to a policy.
package approval
