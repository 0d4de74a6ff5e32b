// lumen-inspect dumps compiler internals for debugging: the parsed AST
// of a template file and the contexts the autoescaping pass resolves for
// each print.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumen-templates/lumen/pkg/diag"
	"github.com/lumen-templates/lumen/pkg/escape"
	"github.com/lumen-templates/lumen/pkg/template"
)

var rootCmd = cobra.Command{
	Use:   "lumen-inspect",
	Short: "Inspect parsed templates and their escaping contexts",
}

var astCmd = cobra.Command{
	Use:   "ast [files]",
	Short: "Print the parsed AST of each template file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no template files specified")
		}
		for _, path := range args {
			f, err := parseFile(path)
			if err != nil {
				return err
			}
			fmt.Print(template.Pretty(f))
		}
		return nil
	},
}

var contextsCmd = cobra.Command{
	Use:   "contexts [files]",
	Short: "Print the resolved context and escaping ops of every print",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("no template files specified")
		}
		rep := diag.NewReporter()
		az := escape.NewAnalyzer(rep)
		var files []*template.File
		for _, path := range args {
			f, err := parseFile(path)
			if err != nil {
				return err
			}
			az.AddFile(f)
			files = append(files, f)
		}
		res := az.Analyze()
		for _, f := range files {
			for _, t := range f.Templates {
				template.Walk(&printDumper{res: res}, t)
			}
		}
		for _, d := range rep.Diagnostics() {
			fmt.Fprintln(os.Stderr, d)
		}
		if rep.Failed() {
			return fmt.Errorf("analysis failed")
		}
		return nil
	},
}

type printDumper struct {
	res *escape.Result
}

func (d *printDumper) Visit(n template.Node) error {
	p, ok := n.(*template.PrintNode)
	if !ok {
		return nil
	}
	ctx, known := d.res.Contexts[p]
	if !known {
		ctx = "(unanalyzed)"
	}
	ops := strings.Join(d.res.Ops[p], ", ")
	if ops == "" {
		ops = "-"
	}
	fmt.Printf("%v: {{ %s }} %s [%s]\n", p.Pos, template.String(p.Expr), ctx, ops)
	return nil
}

func parseFile(path string) (*template.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return template.Parse(path, string(src))
}

func init() {
	rootCmd.AddCommand(&astCmd)
	rootCmd.AddCommand(&contextsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
