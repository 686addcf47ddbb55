package domain

import "iter"

// BindingRequest asks for a value of Type on behalf of Requester.
// Requester is nil only for the root request of a call site.
type BindingRequest struct {
	Type      *Type
	Requester *Candidate
	Origin    InternedString
	Optional  bool
}

// NodeKind is the variant of a BindingNode.
type NodeKind uint8

const (
	// NodeSingle calls a pool candidate.
	NodeSingle NodeKind = iota
	// NodeInstance reads a local value or object.
	NodeInstance
	// NodeSet aggregates set contributions.
	NodeSet
	// NodeMap aggregates map contributions.
	NodeMap
	// NodeSetElement is one set contribution.
	NodeSetElement
	// NodeMapEntry is one map contribution.
	NodeMapEntry
	// NodeProvider defers the construction of its only dependency.
	NodeProvider
	// NodeReference points back at a node under construction through a provider.
	NodeReference
)

func (k NodeKind) String() string {
	switch k {
	case NodeSingle:
		return "single"
	case NodeInstance:
		return "instance"
	case NodeSet:
		return "set"
	case NodeMap:
		return "map"
	case NodeSetElement:
		return "set-element"
	case NodeMapEntry:
		return "map-entry"
	case NodeProvider:
		return "provider"
	default:
		return "reference"
	}
}

// BindingNode is one step of a resolved provider chain.
// Nodes of a call site form a DAG; shared dependencies are the same node.
type BindingNode struct {
	Kind      NodeKind
	Key       *Type
	Candidate *Candidate
	// TypeArgs holds the types bound to the candidate's type parameters, in declaration order.
	TypeArgs     []*Type
	Dependencies []*BindingNode
	// Defaulted lists optional parameters left to their source default.
	Defaulted []string
	Scope     InternedString
	MapKey    string
	Ref       *BindingNode
}

// IsScoped reports whether the node must be emitted as a guarded singleton.
func (n *BindingNode) IsScoped() bool {
	return n.Scope.String() != ""
}

// Walk yields every node reachable from n exactly once, dependencies first.
// Reference nodes are yielded but their target is not followed.
func (n *BindingNode) Walk() iter.Seq[*BindingNode] {
	return func(yield func(*BindingNode) bool) {
		seen := make(map[*BindingNode]bool)
		var visit func(*BindingNode) bool
		visit = func(cur *BindingNode) bool {
			if seen[cur] {
				return true
			}
			seen[cur] = true
			for _, dep := range cur.Dependencies {
				if !visit(dep) {
					return false
				}
			}
			return yield(cur)
		}
		visit(n)
	}
}

// Resolution is the outcome of resolving one call site.
// Exactly one of Root and Failure is set.
type Resolution struct {
	Site     CallSite
	Root     *BindingNode
	Failure  *Failure
	Warnings []Diagnostic
}

// OK reports whether the call site resolved.
func (r Resolution) OK() bool {
	return r.Failure == nil && r.Root != nil
}
