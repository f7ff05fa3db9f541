// Package chain composes the visitors of several plugins into a single
// traversal ending in one emitter.
package chain

import "clasp/internal/classfile"

// Context is handed to every handler a plugin contributes for one class.
type Context interface {
	// ClassName is the internal name of the class being transformed.
	ClassName() string
	// NotifyChanged marks the current class as affected by the plugin.
	NotifyChanged()
	// MarkAffected marks another class as affected by the plugin.
	MarkAffected(name string)
	// LastWriter is the emitter at the end of the chain.
	LastWriter() classfile.ClassVisitor
}

// Handler is one link of a chain.
type Handler interface {
	classfile.ClassVisitor
	// Mode is the parse and emit flags the handler needs.
	Mode() classfile.Mode
	// Link sets the visitor events are forwarded to.
	Link(next classfile.ClassVisitor)
	Attach(ctx Context)
	Detach()
}

// Grouper is implemented by handlers that stand for a short internal chain.
type Grouper interface {
	Group() []Handler
}

// Expand returns the ordered group a handler stands for.
func Expand(h Handler) []Handler {
	if g, ok := h.(Grouper); ok {
		if hs := g.Group(); len(hs) > 0 {
			return hs
		}
	}
	return []Handler{h}
}

// Base is the embeddable default Handler: it forwards every event to the
// linked visitor.
type Base struct {
	classfile.ClassAdapter
	ctx Context
}

func (b *Base) Mode() classfile.Mode { return classfile.Mode{} }

func (b *Base) Link(next classfile.ClassVisitor) { b.Next = next }

func (b *Base) Attach(ctx Context) { b.ctx = ctx }

func (b *Base) Detach() {
	b.ctx = nil
	b.Next = nil
}

// Context returns the attached context, nil outside a traversal.
func (b *Base) Context() Context { return b.ctx }

type group struct {
	plugin   int
	handlers []Handler
}

// Chain is the composition built for one class.
type Chain struct {
	groups []group
	mode   classfile.Mode
}

// New expands visitors into groups. visitors is indexed by plugin
// registration order; nil entries are plugins that declined the class and
// leave no gap in the result.
func New(visitors []Handler) *Chain {
	c := &Chain{}
	for i, v := range visitors {
		if v == nil {
			continue
		}
		hs := Expand(v)
		for _, h := range hs {
			c.mode = c.mode.Or(h.Mode())
		}
		c.groups = append(c.groups, group{plugin: i, handlers: hs})
	}
	return c
}

// Mode is the OR of every handler's mode.
func (c *Chain) Mode() classfile.Mode { return c.mode }

// Empty reports whether no plugin contributed a handler.
func (c *Chain) Empty() bool { return len(c.groups) == 0 }

// Plugins returns the registration index of every contributing plugin, in chain order.
func (c *Chain) Plugins() []int {
	out := make([]int, len(c.groups))
	for i, g := range c.groups {
		out[i] = g.plugin
	}
	return out
}

// Link attaches each group to the context of its plugin, links the groups in
// order and terminates the chain with tail. It returns the traversal entry
// point, which is tail itself when the chain is empty.
func (c *Chain) Link(tail classfile.ClassVisitor, contextFor func(plugin int) Context) classfile.ClassVisitor {
	var head classfile.ClassVisitor = tail
	var prev Handler
	for _, g := range c.groups {
		ctx := contextFor(g.plugin)
		for _, h := range g.handlers {
			h.Attach(ctx)
		}
		for i := 0; i < len(g.handlers)-1; i++ {
			g.handlers[i].Link(g.handlers[i+1])
		}
		if prev == nil {
			head = g.handlers[0]
		} else {
			prev.Link(g.handlers[0])
		}
		prev = g.handlers[len(g.handlers)-1]
	}
	if prev != nil {
		prev.Link(tail)
	}
	return head
}

// Detach releases every handler of the chain.
func (c *Chain) Detach() {
	for _, g := range c.groups {
		for _, h := range g.handlers {
			h.Detach()
		}
	}
}
