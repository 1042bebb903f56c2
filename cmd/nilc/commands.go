package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lemonberrylabs/nil-layout/pkg/expr"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate a constant expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, layout, err := commandScope(cmd)
			if err != nil {
				return err
			}
			v, err := expr.ParseAndEval(args[0], env, layout)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return nil
		},
	}
	addScopeFlags(cmd)
	return cmd
}

func newTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type <ty>",
		Short: "Normalize a type expression and print its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := expr.ParseType(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.String())

			env, layout, err := commandScope(cmd)
			if err != nil {
				return err
			}
			l, err := runtime.ComputeLayout(t, env, layout)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "size:  %s\n", optional(l.Size, "unsized"))
			fmt.Fprintf(out, "align: %d\n", l.Align)
			if l.Len != nil {
				fmt.Fprintf(out, "len:   %d\n", *l.Len)
			}
			return nil
		},
	}
	addScopeFlags(cmd)
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.yaml>",
		Short: "Load a definitions file and print its bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := layoutParams(cmd)
			if err != nil {
				return err
			}
			compiled, err := loadDefinitions(args[0], layout)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d binding(s), word %d, pointer %d, %s\n",
				args[0], len(compiled.Order), compiled.Layout.WordSize, compiled.Layout.PointerSize, compiled.Layout.ByteOrder)
			renderBindings(out, compiled.Describe())
			return nil
		},
	}
}

// addScopeFlags adds the flags that build an evaluation environment.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("definitions", "d", "", "Definitions YAML file to evaluate against")
	cmd.Flags().StringArrayP("bind", "b", nil, "Extra constant as name=expr (repeatable)")
}

// commandScope builds the environment for eval and type: the definitions
// file, if any, plus --bind constants evaluated in order.
func commandScope(cmd *cobra.Command) (*runtime.Environment, types.LayoutParams, error) {
	layout, err := layoutParams(cmd)
	if err != nil {
		return nil, layout, err
	}

	env := runtime.NewEnvironment()
	if path, _ := cmd.Flags().GetString("definitions"); path != "" {
		compiled, err := loadDefinitions(path, layout)
		if err != nil {
			return nil, layout, err
		}
		env = compiled.Env.NewChild()
		layout = compiled.Layout
	}

	binds, _ := cmd.Flags().GetStringArray("bind")
	for _, b := range binds {
		name, source, ok := strings.Cut(b, "=")
		name = strings.TrimSpace(name)
		if !ok || !expr.IsIdentifier(name) {
			return nil, layout, fmt.Errorf("invalid --bind %q (want name=expr)", b)
		}
		v, err := expr.ParseAndEval(source, env, layout)
		if err != nil {
			return nil, layout, fmt.Errorf("--bind %s: %w", name, err)
		}
		env.BindValue(name, v)
	}
	return env, layout, nil
}

func loadDefinitions(path string, layout types.LayoutParams) (*runtime.Compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	compiled, err := runtime.NewEngine(nil).LoadSource(data, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return compiled, nil
}

func renderBindings(w io.Writer, infos []runtime.BindingInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Kind", "Value", "Size", "Align", "Len"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, info := range infos {
		row := []string{info.Name, info.Kind, "", "", "", ""}
		switch {
		case info.Layout != nil:
			row[2] = info.Type
			row[3] = optional(info.Layout.Size, "unsized")
			row[4] = fmt.Sprint(info.Layout.Align)
			row[5] = optional(info.Layout.Len, "")
		case info.Error != "":
			row[2] = info.Type
			row[3] = info.Error
		default:
			row[2] = fmt.Sprint(info.Value)
		}
		table.Append(row)
	}
	table.Render()
}

func optional(p *int64, missing string) string {
	if p == nil {
		return missing
	}
	return fmt.Sprint(*p)
}
