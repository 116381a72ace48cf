// Package policy holds the approval rules the local emulator applies to
// pending callbacks: wait for a human, approve, or reject.
package policy
