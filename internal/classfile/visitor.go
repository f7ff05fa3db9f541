package classfile

// ClassVisitor receives the events of one class traversal, in order:
// Visit, VisitSource, VisitAnnotation*, VisitField*, VisitMethod*, VisitEnd.
//
// Returning a nil sub-visitor tells the caller to skip that element.
type ClassVisitor interface {
	Visit(version uint16, access Access, name, super string, interfaces []string)
	VisitSource(file string)
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitField(access Access, name, desc string) FieldVisitor
	VisitMethod(access Access, name, desc string, exceptions []string) MethodVisitor
	VisitEnd()
}

// AnnotationVisitor receives the elements of one annotation.
type AnnotationVisitor interface {
	Visit(name, value string)
	VisitEnd()
}

// FieldVisitor receives the annotations of one field.
type FieldVisitor interface {
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitEnd()
}

// MethodVisitor receives the annotations and body of one method.
type MethodVisitor interface {
	VisitAnnotation(desc string, visible bool) AnnotationVisitor
	VisitParameterAnnotation(param int, desc string, visible bool) AnnotationVisitor
	VisitCode(code []byte)
	VisitLineNumber(offset, line uint32)
	VisitJoin(offset uint32, incoming []string)
	VisitFrame(offset uint32, typ string)
	VisitEnd()
}

// ClassAdapter forwards every event to Next. Embed it and override the
// events of interest. A nil Next swallows events.
type ClassAdapter struct {
	Next ClassVisitor
}

func (a *ClassAdapter) Visit(version uint16, access Access, name, super string, interfaces []string) {
	if a.Next != nil {
		a.Next.Visit(version, access, name, super, interfaces)
	}
}

func (a *ClassAdapter) VisitSource(file string) {
	if a.Next != nil {
		a.Next.VisitSource(file)
	}
}

func (a *ClassAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a *ClassAdapter) VisitField(access Access, name, desc string) FieldVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitField(access, name, desc)
}

func (a *ClassAdapter) VisitMethod(access Access, name, desc string, exceptions []string) MethodVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitMethod(access, name, desc, exceptions)
}

func (a *ClassAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// FieldAdapter forwards every event to Next.
type FieldAdapter struct {
	Next FieldVisitor
}

func (a *FieldAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a *FieldAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// MethodAdapter forwards every event to Next.
type MethodAdapter struct {
	Next MethodVisitor
}

func (a *MethodAdapter) VisitAnnotation(desc string, visible bool) AnnotationVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitAnnotation(desc, visible)
}

func (a *MethodAdapter) VisitParameterAnnotation(param int, desc string, visible bool) AnnotationVisitor {
	if a.Next == nil {
		return nil
	}
	return a.Next.VisitParameterAnnotation(param, desc, visible)
}

func (a *MethodAdapter) VisitCode(code []byte) {
	if a.Next != nil {
		a.Next.VisitCode(code)
	}
}

func (a *MethodAdapter) VisitLineNumber(offset, line uint32) {
	if a.Next != nil {
		a.Next.VisitLineNumber(offset, line)
	}
}

func (a *MethodAdapter) VisitJoin(offset uint32, incoming []string) {
	if a.Next != nil {
		a.Next.VisitJoin(offset, incoming)
	}
}

func (a *MethodAdapter) VisitFrame(offset uint32, typ string) {
	if a.Next != nil {
		a.Next.VisitFrame(offset, typ)
	}
}

func (a *MethodAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}

// AnnotationAdapter forwards every event to Next.
type AnnotationAdapter struct {
	Next AnnotationVisitor
}

func (a *AnnotationAdapter) Visit(name, value string) {
	if a.Next != nil {
		a.Next.Visit(name, value)
	}
}

func (a *AnnotationAdapter) VisitEnd() {
	if a.Next != nil {
		a.Next.VisitEnd()
	}
}
