package emit

import (
	"context"
	"encoding/json"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// JSONEmitter dumps the binding graph of every call site.
type JSONEmitter struct{}

// NewJSONEmitter creates a new JSONEmitter.
func NewJSONEmitter() *JSONEmitter {
	return &JSONEmitter{}
}

type graphDoc struct {
	Unit   string    `json:"unit"`
	Module string    `json:"module"`
	Sites  []siteDoc `json:"sites"`
}

type siteDoc struct {
	ID        string    `json:"id"`
	Requested string    `json:"requested"`
	Location  string    `json:"location"`
	Root      int       `json:"root"`
	Nodes     []nodeDoc `json:"nodes"`
	Warnings  []string  `json:"warnings,omitempty"`
}

type nodeDoc struct {
	ID        int      `json:"id"`
	Kind      string   `json:"kind"`
	Key       string   `json:"key"`
	Candidate string   `json:"candidate,omitempty"`
	Callable  string   `json:"callable,omitempty"`
	Location  string   `json:"location,omitempty"`
	TypeArgs  []string `json:"typeArgs,omitempty"`
	Deps      []int    `json:"deps,omitempty"`
	Defaulted []string `json:"defaulted,omitempty"`
	Scope     string   `json:"scope,omitempty"`
	MapKey    string   `json:"mapKey,omitempty"`
	Ref       *int     `json:"ref,omitempty"`
}

// Emit renders the unit as an indented JSON document.
func (e *JSONEmitter) Emit(ctx context.Context, unit *domain.Unit, resolutions []domain.Resolution) ([]byte, error) {
	doc := graphDoc{Unit: unit.Name, Module: unit.Module, Sites: make([]siteDoc, 0, len(resolutions))}

	for _, res := range resolutions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, zerr.With(domain.ErrResolutionFailed, "site", res.Site.ID)
		}
		doc.Sites = append(doc.Sites, e.site(res))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to marshal binding graph")
	}
	return append(data, '\n'), nil
}

func (e *JSONEmitter) site(res domain.Resolution) siteDoc {
	order, ids := numberNodes(res.Root)
	sd := siteDoc{
		ID:        res.Site.ID,
		Requested: res.Site.Requested.String(),
		Location:  res.Site.Location.String(),
		Root:      ids[res.Root],
		Nodes:     make([]nodeDoc, 0, len(order)),
	}
	for _, w := range res.Warnings {
		sd.Warnings = append(sd.Warnings, w.Message)
	}

	for _, n := range order {
		nd := nodeDoc{
			ID:        ids[n],
			Kind:      n.Kind.String(),
			Key:       n.Key.String(),
			Defaulted: n.Defaulted,
			Scope:     n.Scope.String(),
			MapKey:    n.MapKey,
		}
		if n.Candidate != nil {
			nd.Candidate = n.Candidate.Name.String()
			nd.Callable = n.Candidate.Callable.String()
			nd.Location = n.Candidate.Location.String()
		}
		for _, t := range n.TypeArgs {
			nd.TypeArgs = append(nd.TypeArgs, t.String())
		}
		for _, d := range n.Dependencies {
			nd.Deps = append(nd.Deps, ids[d])
		}
		if n.Ref != nil {
			if id, ok := ids[n.Ref]; ok {
				nd.Ref = &id
			}
		}
		sd.Nodes = append(sd.Nodes, nd)
	}
	return sd
}
