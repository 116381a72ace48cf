// Package durable starts durable workflows and resumes their callbacks.
//
// A durable workflow runs on an engine that checkpoints every step. When a
// step needs an external decision the workflow creates a callback and
// suspends; whoever holds the callback token resumes it exactly once with
// a result or an error. The root Service wraps both sides over HTTP:
//
//	srv, _ := durable.New(ctx, durable.WithConfig(cfg))
//	ack, _ := srv.StartWorkflow(ctx, "sales-approval:1", []byte(`{"date":"2025-01-15"}`))
//	_, _ = srv.Succeed(ctx, token, []byte(`{"approved_ids":["00003"]}`))
//
// NewEmulator runs the engine locally with the sales approval pipeline.
// See the service sub-packages for the invoker, callback coordinator,
// emulator, ledger and workflow context.
package durable
