// Package testutil provides deterministic stand-ins for the controller's
// runtime seams: a manual scheduler, spawners, a scripted fetcher and
// sequential request ids.
//
// testutil never imports engine. Each type satisfies the matching engine
// interface structurally, so engine's own tests can use it.
package testutil
