package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/grapher"
	"github.com/aretw0/grapher/internal/presentation/diagram"
	"github.com/aretw0/grapher/internal/presentation/tui"
	"github.com/aretw0/grapher/internal/validator"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/aretw0/grapher/pkg/graph"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// edit opens path for writing, applies fn and saves. Read-only documents fail
// before fn runs.
func (a *application) edit(ctx context.Context, path string, fn func(*grapher.Session) error) (err error) {
	s, err := a.editor.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if s.ReadOnly() {
		h := s.Holder()
		return fmt.Errorf("%w: %s is locked by %s@%s", domain.ErrReadOnlyViolation, path, h.User, h.Station)
	}
	if err := fn(s); err != nil {
		return err
	}
	return s.Save(ctx)
}

func newNewCmd(app *application) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "new [document]",
		Short: "Create an empty document",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := graph.NewDocument()
			doc.Comment = comment
			s, err := app.editor.Create(cmd.Context(), args[0], doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", s.Path())
			return s.Close(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Document comment (markdown)")
	return cmd
}

func newInspectCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [document]",
		Short: "Show the comment, lock state and counts of a document",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := app.editor.Load(ctx, args[0])
			if err != nil {
				return err
			}
			state, holder, err := app.editor.LockStatus(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			render := tui.PlainRenderer
			profile := termenv.Ascii
			if isTerminal(out) {
				tui.PrintBanner(out)
				render = tui.NewRenderer(80)
				profile = termenv.ColorProfile()
			}
			fmt.Fprintf(out, "Document: %s\n", args[0])
			fmt.Fprintf(out, "Lock:     %s\n", tui.FormatLockState(profile, state, holder))
			fmt.Fprintf(out, "Nodes:    %d\n", doc.Tree.Len())
			fmt.Fprintf(out, "Links:    %d\n", len(doc.Connections))
			fmt.Fprintf(out, "Vars:     %d\n", len(doc.Variables))
			if doc.Comment != "" {
				rendered, err := render(doc.Comment)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s", rendered)
			}
			return nil
		},
	}
}

func newNodesCmd(app *application) *cobra.Command {
	var execOrder bool
	cmd := &cobra.Command{
		Use:   "nodes [document]",
		Short: "List the nodes of a document in pre-order",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.editor.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ids := doc.Tree.AllNodes()
			if execOrder {
				ids = doc.Tree.ExecutionOrder()
			}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				n, _ := doc.Tree.Node(id)
				path, _ := doc.Tree.Path(id)
				rows = append(rows, []string{
					path,
					string(n.Type),
					strconv.FormatBool(n.Enabled),
					n.VersionLabel(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Path", "Type", "Enabled", "Version"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&execOrder, "exec-order", false, "Skip disabled nodes and their subtrees")
	cmd.AddCommand(newNodesAddCmd(app), newNodesRemoveCmd(app))
	return cmd
}

func newNodesAddCmd(app *application) *cobra.Command {
	var (
		nodeType   string
		parent     string
		index      int
		scriptFile string
		disabled   bool
	)
	cmd := &cobra.Command{
		Use:   "add [document] [name]",
		Short: "Add a node, renaming it if the name is taken",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			node := domain.NewNode(args[1], domain.NodeType(nodeType))
			node.Enabled = !disabled
			if scriptFile != "" {
				script, err := os.ReadFile(scriptFile)
				if err != nil {
					return err
				}
				node.Script = string(script)
			}
			return app.edit(cmd.Context(), args[0], func(s *grapher.Session) error {
				parentID := graph.NoParent
				if parent != "" {
					id, ok := s.Document.Tree.FindByPath(parent)
					if !ok {
						return fmt.Errorf("%w: %s", domain.ErrInvalidParent, parent)
					}
					parentID = id
				}
				id, err := s.Document.AddNode(node, parentID, index)
				if err != nil {
					return err
				}
				path, _ := s.Document.Tree.Path(id)
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", path)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&nodeType, "type", string(domain.NodeTypePyData), "Node type (modul, sysData, cmdData, pyData, loop, condition)")
	f.StringVar(&parent, "parent", "", "Path of the parent node; empty adds a root")
	f.IntVar(&index, "index", graph.Append, "Position among siblings; -1 appends")
	f.StringVar(&scriptFile, "script-file", "", "File holding the node script")
	f.BoolVar(&disabled, "disabled", false, "Add the node disabled")
	return cmd
}

func newNodesRemoveCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [document] [path]",
		Short: "Remove a node, its subtree and their connections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd.Context(), args[0], func(s *grapher.Session) error {
				id, ok := s.Document.Tree.FindByPath(args[1])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[1])
				}
				if err := s.Document.RemoveNode(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[1])
				return nil
			})
		},
	}
}

func newConnectCmd(app *application) *cobra.Command {
	var fromPlug, toPlug string
	cmd := &cobra.Command{
		Use:   "connect [document] [source] [dest]",
		Short: "Connect an output plug to an input plug",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.edit(cmd.Context(), args[0], func(s *grapher.Session) error {
				src, ok := s.Document.Tree.FindByPath(args[1])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[1])
				}
				dst, ok := s.Document.Tree.FindByPath(args[2])
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, args[2])
				}
				if _, err := s.Document.Connect(src, domain.PlugKind(fromPlug), dst, domain.PlugKind(toPlug)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Connected %s.%s -> %s.%s\n", args[1], fromPlug, args[2], toPlug)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&fromPlug, "from", string(domain.PlugOutputFile), "Source plug")
	cmd.Flags().StringVar(&toPlug, "to", string(domain.PlugInputFile), "Destination plug (inputFile or inputData)")
	return cmd
}

func newVarsCmd(app *application) *cobra.Command {
	var expand bool
	cmd := &cobra.Command{
		Use:   "vars [document]",
		Short: "List the variable table, or its expanded values",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.editor.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if expand {
				values, err := doc.ExpandVariables()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(values))
				for _, v := range doc.Variables {
					if val, ok := values[v.Label]; ok {
						rows = append(rows, []string{v.Label, val})
						delete(values, v.Label)
					}
				}
				fmt.Fprintln(out, renderTable([]string{"Label", "Value"}, rows, nil))
				return nil
			}
			rows := make([][]string, 0, len(doc.Variables))
			for i, v := range doc.Variables {
				rows = append(rows, []string{
					strconv.Itoa(i),
					strconv.FormatBool(v.Enabled),
					v.Label,
					string(v.Operator),
					v.Value,
					v.Comment,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Enabled", "Label", "Op", "Value", "Comment"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&expand, "expand", false, "Fold the table into one value per label")
	cmd.AddCommand(newVarsAddCmd(app))
	return cmd
}

func newVarsAddCmd(app *application) *cobra.Command {
	var (
		op       string
		comment  string
		index    int
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add [document] [label] [value]",
		Short: "Insert a variable into the table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := domain.Variable{
				Enabled:  !disabled,
				Label:    args[1],
				Operator: domain.Operator(op),
				Value:    args[2],
				Comment:  comment,
			}
			if !v.Operator.Valid() {
				return fmt.Errorf("unknown operator %q (want =, + or num)", op)
			}
			return app.edit(cmd.Context(), args[0], func(s *grapher.Session) error {
				s.Document.AddVariable(index, v)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&op, "op", string(domain.OpAssign), "Operator (=, + or num)")
	f.StringVar(&comment, "comment", "", "Free text comment")
	f.IntVar(&index, "index", -1, "Position in the table; -1 appends")
	f.BoolVar(&disabled, "disabled", false, "Add the variable disabled")
	return cmd
}

func newGraphCmd(app *application) *cobra.Command {
	var (
		done    []string
		current string
	)
	cmd := &cobra.Command{
		Use:   "graph [document]",
		Short: "Print the document as a Mermaid flowchart",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.editor.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			var overlay *diagram.Overlay
			if len(done) > 0 || current != "" {
				overlay = &diagram.Overlay{Done: done, Current: current}
			}
			fmt.Fprint(cmd.OutOrStdout(), diagram.GenerateMermaid(doc, overlay))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&done, "done", nil, "Node paths to highlight as done")
	cmd.Flags().StringVar(&current, "current", "", "Node path to highlight as current")
	return cmd
}

func newValidateCmd(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [document]",
		Short: "Report problems that would stop a document from running",
		Args:  exactDocArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := app.editor.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := validator.ValidateDocument(doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Document is valid.")
			return nil
		},
	}
}
