// Package transform defines the contract between the engine and a transform
// plugin: the request a plugin declares before dispatch, the per-class hook
// that yields its chain handler, and the completion hook run after dispatch.
package transform
