package guard

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// protectingCalls are the calls that count as a permission check. Matching
// is case-insensitive on the called name.
var protectingCalls = []string{
	"CheckPermission",
	"CheckAnyPermission",
	"CheckAllPermissions",
	"RequireSuperAdmin",
}

// baseController is the embedded receiver whose methods are inherited, not
// endpoints.
const baseController = "Controller"

// ErrUnknownMethod is returned for a method id missing from the manifest.
var ErrUnknownMethod = errors.New("guard: unknown controller method")

// MethodInfo describes one controller method found in source.
type MethodInfo struct {
	Controller string
	Method     string
	Exported   bool
	Protected  bool
	Position   string
}

// ID returns "Controller@Method".
func (m MethodInfo) ID() string { return m.Controller + "@" + m.Method }

// Manifest is the result of scanning controller source.
type Manifest struct {
	methods map[string]MethodInfo
}

// Protected implements Inspector.
func (m *Manifest) Protected(id string) (bool, error) {
	if m == nil {
		return false, ErrUnknownMethod
	}
	info, ok := m.methods[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownMethod, id)
	}
	return info.Protected, nil
}

// Methods returns every scanned method sorted by id.
func (m *Manifest) Methods() []MethodInfo {
	out := make([]MethodInfo, 0, len(m.methods))
	for _, info := range m.methods {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Scan parses every file of fsys matching pattern and records the methods
// declared on receivers named "*Controller".
func Scan(fsys fs.FS, pattern string) (*Manifest, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("guard: glob %q: %w", pattern, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("guard: no controller sources match %q", pattern)
	}

	m := &Manifest{methods: make(map[string]MethodInfo)}
	fset := token.NewFileSet()
	for _, name := range names {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("guard: read %s: %w", name, err)
		}
		file, err := parser.ParseFile(fset, path.Base(name), src, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("guard: parse %s: %w", name, err)
		}
		collect(fset, file, m)
	}
	return m, nil
}

// ScanDir scans the controllers of a directory on disk.
func ScanDir(dir string) (*Manifest, error) {
	return Scan(os.DirFS(dir), "*_controller.go")
}

func collect(fset *token.FileSet, file *ast.File, m *Manifest) {
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		recv := receiverName(fn.Recv.List[0].Type)
		if recv == baseController || !strings.HasSuffix(recv, "Controller") {
			continue
		}
		info := MethodInfo{
			Controller: recv,
			Method:     fn.Name.Name,
			Exported:   fn.Name.IsExported(),
			Protected:  callsProtection(fn.Body),
			Position:   fset.Position(fn.Pos()).String(),
		}
		m.methods[info.ID()] = info
	}
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func callsProtection(body *ast.BlockStmt) bool {
	if body == nil {
		return false
	}
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		if found {
			return false
		}
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		var name string
		switch fun := call.Fun.(type) {
		case *ast.SelectorExpr:
			name = fun.Sel.Name
		case *ast.Ident:
			name = fun.Name
		}
		for _, want := range protectingCalls {
			if strings.EqualFold(name, want) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}
