package domain

import "slices"

// Annotation names recognised by the collector.
const (
	AnnotationProvide  = "Provide"
	AnnotationGiven    = "Given"
	AnnotationScoped   = "Scoped"
	AnnotationIntoSet  = "IntoSet"
	AnnotationIntoMap  = "IntoMap"
	AnnotationAssisted = "Assisted"
)

// Annotation is a marker on a declaration or parameter.
// Type carries a resolved type argument, such as the key type of IntoMap.
type Annotation struct {
	Name string
	Args []string
	Type *Type
}

// DeclaredParameter is a value parameter as written in the source.
type DeclaredParameter struct {
	Name        string
	Type        *Type
	HasDefault  bool
	Annotations []Annotation
}

// HasAnnotation reports whether the parameter carries the named annotation.
func (p DeclaredParameter) HasAnnotation(name string) bool {
	return slices.ContainsFunc(p.Annotations, func(a Annotation) bool { return a.Name == name })
}

// Declaration is a front-end declaration before collection.
// A declaration with a Scope is local to that lexical scope.
type Declaration struct {
	Name        string
	Kind        CallableKind
	Annotations []Annotation
	Type        *Type
	TypeParams  []TypeParam
	Parameters  []DeclaredParameter
	Scope       string
	Location    Location
}

// Annotation returns the first annotation with the given name.
func (d *Declaration) Annotation(name string) (Annotation, bool) {
	i := slices.IndexFunc(d.Annotations, func(a Annotation) bool { return a.Name == name })
	if i < 0 {
		return Annotation{}, false
	}
	return d.Annotations[i], true
}

// HasAnnotation reports whether the declaration carries the named annotation.
func (d *Declaration) HasAnnotation(name string) bool {
	_, ok := d.Annotation(name)
	return ok
}

// IsInjectable reports whether the declaration is marked as a provider.
func (d *Declaration) IsInjectable() bool {
	return d.HasAnnotation(AnnotationProvide) || d.HasAnnotation(AnnotationGiven)
}
