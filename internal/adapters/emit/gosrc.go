package emit

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// GoEmitter renders one factory function per call site. Every binding node becomes a
// closure; scoped nodes are guarded by a sync.Once field shared by all sites of the unit.
type GoEmitter struct {
	tmpl *template.Template
}

// NewGoEmitter creates a new GoEmitter.
func NewGoEmitter() *GoEmitter {
	return &GoEmitter{tmpl: template.Must(template.New("gosrc").Parse(goTemplate))}
}

const goTemplate = `// Code generated by knit. DO NOT EDIT.
// Unit: {{.Unit}} (module {{.Module}})

package {{.Package}}
{{if .Scoped}}
import "sync"

// scope holds the guarded singletons of scoped injectables.
var scope struct {
{{- range .Scoped}}
	{{.}}Once sync.Once
	{{.}} any
{{- end}}
}
{{end}}
{{- range .Sites}}
// {{.Func}} resolves {{.Requested}} for the call site at {{.Location}}.
func {{.Func}}() any {
{{- range .Nodes}}
	var {{.Var}} func() any
{{- end}}
{{- range .Nodes}}
{{- range .Comments}}
	// {{.}}
{{- end}}
	{{.Var}} = func() any { {{.Body}} }
{{- end}}
	return {{.Root}}()
}
{{end}}`

type goFile struct {
	Unit    string
	Module  string
	Package string
	Scoped  []string
	Sites   []goSite
}

type goSite struct {
	Func      string
	Requested string
	Location  string
	Root      string
	Nodes     []goNode
}

type goNode struct {
	Var      string
	Body     string
	Comments []string
}

// Emit renders the unit as gofmt-ed Go source.
func (e *GoEmitter) Emit(ctx context.Context, unit *domain.Unit, resolutions []domain.Resolution) ([]byte, error) {
	file := goFile{
		Unit:    unit.Name,
		Module:  unit.Module,
		Package: packageName(unit.Name),
	}
	scoped := make(map[string]string)
	funcs := make(map[string]int)

	for _, res := range resolutions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, zerr.With(domain.ErrResolutionFailed, "site", res.Site.ID)
		}

		fn := "Resolve_" + sanitize(res.Site.ID)
		if n := funcs[fn]; n > 0 {
			funcs[fn] = n + 1
			fn = fmt.Sprintf("%s_%d", fn, n+1)
		} else {
			funcs[fn] = 1
		}

		order, ids := numberNodes(res.Root)
		site := goSite{
			Func:      fn,
			Requested: res.Site.Requested.String(),
			Location:  res.Site.Location.String(),
			Root:      nodeVar(ids[res.Root]),
		}
		for _, n := range order {
			site.Nodes = append(site.Nodes, e.node(n, ids, scoped, &file))
		}
		file.Sites = append(file.Sites, site)
	}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, file); err != nil {
		return nil, zerr.Wrap(err, "failed to render go source")
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to format go source"), "unit", unit.Name)
	}
	return src, nil
}

func nodeVar(id int) string {
	return "n" + strconv.Itoa(id)
}

func (e *GoEmitter) node(
	n *domain.BindingNode,
	ids map[*domain.BindingNode]int,
	scoped map[string]string,
	file *goFile,
) goNode {
	gn := goNode{Var: nodeVar(ids[n])}

	deps := make([]string, len(n.Dependencies))
	for i, d := range n.Dependencies {
		deps[i] = nodeVar(ids[d]) + "()"
	}

	var expr string
	switch n.Kind {
	case domain.NodeSet:
		expr = "[]any{" + strings.Join(deps, ", ") + "}"
	case domain.NodeMap:
		entries := make([]string, len(n.Dependencies))
		for i, d := range n.Dependencies {
			entries[i] = strconv.Quote(d.MapKey) + ": " + deps[i]
		}
		expr = "map[string]any{" + strings.Join(entries, ", ") + "}"
	case domain.NodeProvider:
		// The provider hands out the constructor itself.
		gn.Comments = append(gn.Comments, "provider of "+n.Key.String())
		gn.Body = "return " + nodeVar(ids[n.Dependencies[0]])
		return gn
	case domain.NodeReference:
		gn.Comments = append(gn.Comments, "reference to "+n.Key.String()+" under construction")
		gn.Body = "return " + nodeVar(ids[n.Ref]) + "()"
		return gn
	default:
		expr = callExpr(n.Candidate, deps)
		gn.Comments = append(gn.Comments, n.Key.String()+" from "+n.Candidate.String())
		if len(n.TypeArgs) > 0 {
			args := make([]string, len(n.TypeArgs))
			for i, t := range n.TypeArgs {
				args[i] = t.String()
			}
			gn.Comments = append(gn.Comments, "type arguments: "+strings.Join(args, ", "))
		}
		if len(n.Defaulted) > 0 {
			gn.Comments = append(gn.Comments, "defaulted: "+strings.Join(n.Defaulted, ", "))
		}
	}

	if !n.IsScoped() {
		gn.Body = "return " + expr
		return gn
	}

	key := n.Key.Key() + "|" + n.Candidate.Name.String()
	field, ok := scoped[key]
	if !ok {
		field = fmt.Sprintf("s%d_%s", len(scoped), identifier(n.Candidate.Name.String()))
		scoped[key] = field
		file.Scoped = append(file.Scoped, field)
	}
	gn.Comments = append(gn.Comments, "scoped to "+n.Scope.String())
	gn.Body = fmt.Sprintf("scope.%sOnce.Do(func() { scope.%s = %s }); return scope.%s", field, field, expr, field)
	return gn
}

func callExpr(c *domain.Candidate, args []string) string {
	name := qualified(c.Name.String())
	switch c.Callable {
	case domain.CallableObject, domain.CallableValue:
		return name
	case domain.CallableProperty:
		if len(args) == 0 {
			return name
		}
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// qualified keeps dotted names as selector expressions and replaces everything else that is not valid in an identifier.
func qualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = identifier(p)
	}
	return strings.Join(parts, ".")
}

// identifier turns s into a valid Go identifier that is not a keyword.
func identifier(s string) string {
	id := sanitize(s)
	if id == "" || unicode.IsDigit(rune(id[0])) {
		id = "_" + id
	}
	if token.IsKeyword(id) {
		id += "_"
	}
	return id
}

// sanitize replaces every rune that cannot appear in an identifier with an underscore.
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func packageName(unit string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(unit) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if name == "" {
		return "knitgen"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "k" + name
	}
	return name
}
