// Package compiler orchestrates a compile run: parse the template
// files, run the autoescaping analysis, check function calls against the
// plugin registry, then emit one source file per input file and backend.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lumen-templates/lumen/pkg/codegen"
	"github.com/lumen-templates/lumen/pkg/codegen/jssrc"
	"github.com/lumen-templates/lumen/pkg/codegen/pysrc"
	"github.com/lumen-templates/lumen/pkg/config"
	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/escape"
	"github.com/lumen-templates/lumen/pkg/plugins"
	"github.com/lumen-templates/lumen/pkg/runtimelib"
	"github.com/lumen-templates/lumen/pkg/template"
)

type Options struct {
	// CheckOnly stops after analysis; nothing is written.
	CheckOnly bool
}

// Run executes one compile. Diagnostics are logged as they are known;
// the returned error is non-nil when any fatal diagnostic occurred.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) error {
	files, err := cfg.Sources()
	if err != nil {
		return err
	}

	reg := plugins.NewRegistry()
	if cfg.Plugins != "" {
		if err := plugins.LoadManifest(cfg.Plugins, reg); err != nil {
			return err
		}
		log.Debug("loaded plugin manifest", "path", cfg.Plugins)
	}

	rep := diag.NewReporter()
	parsed := make([]*template.File, len(files))
	g, _ := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			f, perr := template.Parse(path, string(src))
			if perr != nil {
				reportParseError(rep, path, perr)
				return nil
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if rep.Failed() {
		return finish(log, rep)
	}
	log.Debug("parsed template files", "count", len(parsed))

	// The analyzer serializes on its own mutex; files race only for the
	// shared memo table.
	az := escape.NewAnalyzer(rep)
	for _, f := range parsed {
		az.AddFile(f)
	}
	g, _ = errgroup.WithContext(ctx)
	for _, f := range parsed {
		g.Go(func() error {
			az.AnalyzeFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	checkCalls(parsed, reg, rep)
	if rep.Failed() {
		return finish(log, rep)
	}
	if opts.CheckOnly {
		log.Info("check passed", "files", len(parsed))
		return finish(log, rep)
	}

	dec := az.Decoration()
	backends, err := backendsFor(cfg.Backends, reg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return err
	}
	if err := runtimelib.Install(cfg.OutDir, cfg.Backends); err != nil {
		return err
	}
	g, _ = errgroup.WithContext(ctx)
	for _, f := range parsed {
		for _, b := range backends {
			g.Go(func() error {
				out, ok := b.EmitFile(f, dec, rep)
				if !ok {
					// Fatal for this backend only; already reported.
					return nil
				}
				dst := filepath.Join(cfg.OutDir, outputName(f.Name, b))
				if err := os.WriteFile(dst, out, 0o644); err != nil {
					return err
				}
				log.Debug("wrote output", "backend", b.Name(), "path", dst)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return finish(log, rep)
}

func outputName(src string, b codegen.Backend) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + b.FileExt()
}

func backendsFor(names []string, reg *plugins.Registry) ([]codegen.Backend, error) {
	var out []codegen.Backend
	for _, name := range names {
		switch name {
		case "js":
			out = append(out, jssrc.New(reg))
		case "py":
			out = append(out, pysrc.New(reg))
		default:
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	return out, nil
}

func reportParseError(rep *diag.Reporter, path string, err error) {
	var pe *template.Error
	if errors.As(err, &pe) {
		rep.Errorf(pe.Pos, diag.ParseError, "%s", pe.Msg)
		return
	}
	rep.Errorf(diag.Pos{File: path, Line: 1, Col: 1}, diag.ParseError, "%v", err)
}

// finish logs every accumulated diagnostic and converts fatal ones into
// the run's error.
func finish(log *slog.Logger, rep *diag.Reporter) error {
	for _, d := range rep.Diagnostics() {
		switch d.Severity {
		case diag.Warning:
			log.Warn(d.Message, "pos", d.Pos.String(), "code", string(d.Code))
		default:
			log.Error(d.Message, "pos", d.Pos.String(), "code", string(d.Code))
		}
	}
	return rep.Err()
}

// checkCalls validates every function call against the registry once,
// backend-independently, so -check runs see the same diagnostics a full
// compile would.
func checkCalls(files []*template.File, reg *plugins.Registry, rep *diag.Reporter) {
	v := &callChecker{reg: reg, rep: rep}
	for _, f := range files {
		for _, t := range f.Templates {
			template.Walk(v, t)
		}
	}
}

type callChecker struct {
	reg *plugins.Registry
	rep *diag.Reporter
}

func (v *callChecker) Visit(n template.Node) error {
	switch t := n.(type) {
	case *template.PrintNode:
		v.checkExpr(t.Expr, t.Pos)
	case *template.IfNode:
		v.checkExpr(t.Cond, t.Pos)
		for _, e := range t.Elifs {
			v.checkExpr(e.Cond, e.Pos)
		}
	case *template.ForNode:
		v.checkExpr(t.Iterable, t.Pos)
	}
	return nil
}

func (v *callChecker) checkExpr(e template.Expr, pos diag.Pos) {
	switch t := e.(type) {
	case *template.NotExpr:
		v.checkExpr(t.X, pos)
	case *template.CmpExpr:
		v.checkExpr(t.X, pos)
		v.checkExpr(t.Y, pos)
	case *template.CallExpr:
		sig, ok := v.reg.Lookup(t.Name)
		if !ok {
			v.rep.Errorf(pos, diag.UnknownFunction, "unknown function %q", t.Name)
		} else if !sig.AcceptsArity(len(t.Args)) {
			v.rep.Errorf(pos, diag.UnsupportedConstruct,
				"function %q does not accept %d arguments", t.Name, len(t.Args))
		}
		for _, a := range t.Args {
			v.checkExpr(a, pos)
		}
	}
}
