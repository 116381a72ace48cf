// Package model defines the function, invocation and callback types shared by
// the engine client, the local emulator and the workflow runtime, together with
// the error kinds they report.
package model
