// Package session manages participant workspaces.
//
// A participant session (sess_* id, carried by header or cookie) maps to
// one Workspace: its own sandbox runner, host page and debug console. The
// runner keeps at most one live realm, so separate participants never
// share a realm or a container.
//
// Components:
//   - Manager: open-on-first-use registry with an optional size limit
//   - Builder: wires runner, host bridge and console sinks together
//   - Sweep: disposes workspaces idle past a cutoff
//
// Example Usage:
//
//	manager := session.NewManager(session.NewBuilder(session.BuildConfig{
//		Sandbox:   sandbox.DefaultConfig(),
//		Validator: validator.Default(),
//	}), 1000)
//	ws, err := manager.Open(sid)
//	_, err = ws.Runner.Execute(ctx, code)
package session
