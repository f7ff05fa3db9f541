package orchestrator

import "clasp/internal/classfile"

// classContext is the chain.Context of one plugin for one class.
type classContext struct {
	class  string
	b      *binding
	writer classfile.ClassVisitor
}

func (c *classContext) ClassName() string { return c.class }

func (c *classContext) NotifyChanged() { c.b.provider.OnClassAffected(c.class) }

func (c *classContext) MarkAffected(name string) { c.b.provider.OnClassAffected(name) }

func (c *classContext) LastWriter() classfile.ClassVisitor { return c.writer }
