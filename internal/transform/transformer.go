package transform

import (
	"clasp/internal/chain"
	"clasp/internal/graph"
)

// Transformer is implemented by every plugin.
//
// BeforeTransform is called once per build, concurrently with the other
// plugins, before any class is dispatched. OnTransform is called concurrently
// for many classes; returning ok=false declines the class. AfterTransform runs
// once after every class has been dispatched.
type Transformer interface {
	BeforeTransform() *Request
	OnTransform(rec graph.Record, target bool) (h chain.Handler, ok bool)
	AfterTransform() error
}
