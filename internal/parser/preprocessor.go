package parser

import (
	"os"
	"path/filepath"

	"github.com/db47h/retroasm/internal/ast"
	"github.com/db47h/retroasm/internal/diag"
	"github.com/db47h/retroasm/internal/lexer"
)

// Preprocessor splices "include" and "incbin" directives into a parsed
// statement tree. Unlike the teacher's text-level Preprocessor (which
// inlines raw source lines before lexing and also resolves conditionals),
// this generalization runs after parsing: conditionals are a pass-2-only
// concern of the analyzer per spec.md §4.4, so the only thing left for this
// stage is file inclusion, which needs a real statement tree to splice into
// rather than raw text.
type Preprocessor struct {
	baseDir      string
	includeStack []string
	diags        *diag.List
}

// NewPreprocessor creates a Preprocessor resolving relative include/incbin
// paths against baseDir (the directory of the top-level source file).
func NewPreprocessor(baseDir string, dl *diag.List) *Preprocessor {
	if baseDir == "" {
		baseDir = "."
	}
	return &Preprocessor{baseDir: baseDir, diags: dl}
}

// Expand parses src as filename and recursively splices every "include" and
// "incbin" directive it finds, depth-first, returning the fully flattened
// statement list.
func (pp *Preprocessor) Expand(src, filename string) []ast.Statement {
	toks := lexer.New(src, filename).All()
	p := New(toks, pp.diags)
	stmts := p.ParseProgram()
	return pp.expandStatements(stmts, filename)
}

func (pp *Preprocessor) expandStatements(stmts []ast.Statement, filename string) []ast.Statement {
	out := make([]ast.Statement, 0, len(stmts))
	for _, s := range stmts {
		switch d := s.(type) {
		case *ast.Directive:
			switch d.Name {
			case "include":
				out = append(out, pp.include(d, filename)...)
				continue
			case "incbin":
				if rb := pp.incbin(d, filename); rb != nil {
					out = append(out, rb)
				}
				continue
			}
		case *ast.Conditional:
			d.Then = pp.expandStatements(d.Then, filename)
			for i := range d.ElseIfs {
				d.ElseIfs[i].Body = pp.expandStatements(d.ElseIfs[i].Body, filename)
			}
			d.Else = pp.expandStatements(d.Else, filename)
		case *ast.Repeat:
			d.Body = pp.expandStatements(d.Body, filename)
		case *ast.MacroDefinition:
			// Macro bodies are expanded at invocation time (internal/macro),
			// against the invocation site's own include context, not here.
		}
		out = append(out, s)
	}
	return out
}

func (pp *Preprocessor) include(d *ast.Directive, fromFile string) []ast.Statement {
	if len(d.RawArgs) == 0 {
		pp.diags.Addf(d.Pos, diag.Syntax, "include directive requires a file name")
		return nil
	}
	name := d.RawArgs[0]

	absPath, err := filepath.Abs(filepath.Join(pp.baseDir, name))
	if err != nil {
		pp.diags.Addf(d.Pos, diag.FileIO, "cannot resolve include path %q: %s", name, err)
		return nil
	}

	for _, included := range pp.includeStack {
		if included == absPath {
			pp.diags.Addf(d.Pos, diag.CircularInclude, "circular include of %q", name)
			return nil
		}
	}

	content, err := os.ReadFile(absPath) // #nosec G304 -- user-provided include file path
	if err != nil {
		pp.diags.Addf(d.Pos, diag.FileIO, "cannot read include file %q: %s", name, err)
		return nil
	}

	pp.includeStack = append(pp.includeStack, absPath)
	defer func() { pp.includeStack = pp.includeStack[:len(pp.includeStack)-1] }()

	toks := lexer.New(string(content), name).All()
	p := New(toks, pp.diags)
	stmts := p.ParseProgram()
	return pp.expandStatements(stmts, name)
}

func (pp *Preprocessor) incbin(d *ast.Directive, _ string) ast.Statement {
	if len(d.RawArgs) == 0 {
		pp.diags.Addf(d.Pos, diag.Syntax, "incbin directive requires a file name")
		return nil
	}
	name := d.RawArgs[0]

	absPath, err := filepath.Abs(filepath.Join(pp.baseDir, name))
	if err != nil {
		pp.diags.Addf(d.Pos, diag.FileIO, "cannot resolve incbin path %q: %s", name, err)
		return nil
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- user-provided incbin file path
	if err != nil {
		pp.diags.Addf(d.Pos, diag.FileIO, "cannot read incbin file %q: %s", name, err)
		return nil
	}

	return &ast.RawBytes{Data: data, Base: ast.NewBase(d.Pos)}
}
