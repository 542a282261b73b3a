package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/workflow"
	"gopkg.in/yaml.v3"
)

// tableDoc is the exported form of one transition table.
type tableDoc struct {
	Name     string      `yaml:"name"`
	Initial  string      `yaml:"initial"`
	Statuses []statusDoc `yaml:"statuses"`
}

type statusDoc struct {
	Status   string    `yaml:"status"`
	Terminal bool      `yaml:"terminal,omitempty"`
	Roles    []string  `yaml:"roles,omitempty"`
	Edges    []edgeDoc `yaml:"edges,omitempty"`
}

type edgeDoc struct {
	To               string `yaml:"to"`
	Label            string `yaml:"label"`
	RequiresNotes    bool   `yaml:"requires_notes,omitempty"`
	RequiresApproval bool   `yaml:"requires_approval,omitempty"`
	ApprovalKind     string `yaml:"approval_kind,omitempty"`
}

func describeTable[S ~string](t *workflow.Table[S]) tableDoc {
	doc := tableDoc{Name: t.Name(), Initial: string(t.Initial())}
	for _, s := range t.Statuses() {
		cfg, _ := t.Config(s)
		sd := statusDoc{Status: string(s), Terminal: t.Terminal(s)}
		for _, r := range cfg.AllowedRoles {
			sd.Roles = append(sd.Roles, string(r))
		}
		for _, e := range cfg.Edges {
			sd.Edges = append(sd.Edges, edgeDoc{
				To:               string(e.To),
				Label:            e.Label,
				RequiresNotes:    e.RequiresNotes,
				RequiresApproval: e.RequiresApproval,
				ApprovalKind:     string(e.ApprovalKind),
			})
		}
		doc.Statuses = append(doc.Statuses, sd)
	}
	return doc
}

var tableDocs = map[string]func() tableDoc{
	"story":     func() tableDoc { return describeTable(workflow.StoryTable) },
	"execution": func() tableDoc { return describeTable(workflow.ExecutionTable) },
	"defect":    func() tableDoc { return describeTable(workflow.DefectTable) },
	"testcase":  func() tableDoc { return describeTable(workflow.TestCaseTable) },
}

func tableNames() []string {
	names := make([]string, 0, len(tableDocs))
	for n := range tableDocs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupTable(name string) (tableDoc, error) {
	fn, ok := tableDocs[strings.ToLower(name)]
	if !ok {
		return tableDoc{}, fmt.Errorf("unknown workflow %q (want one of %s)", name, strings.Join(tableNames(), ", "))
	}
	return fn(), nil
}

func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect the transition tables",
	}

	cmd.AddCommand(newWorkflowShowCmd())
	cmd.AddCommand(newWorkflowExportCmd())
	return cmd
}

func newWorkflowShowCmd() *cobra.Command {
	var roleName string

	cmd := &cobra.Command{
		Use:   "show <story|execution|defect|testcase>",
		Short: "Print a transition table",
		Long:  "Prints every status with its permitted roles and outgoing edges. With --role, only edges that role may take are shown.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := lookupTable(args[0])
			if err != nil {
				return err
			}
			r, err := role.Parse(roleName)
			if err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), doc, r)
			return nil
		},
	}

	cmd.Flags().StringVar(&roleName, "role", "", "only show edges available to this role")
	return cmd
}

func printTable(out io.Writer, doc tableDoc, r role.Role) {
	fmt.Fprintf(out, "Workflow: %s (initial %q)\n\n", doc.Name, doc.Initial)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tLABEL\tNOTES\tAPPROVAL\tROLES")
	for _, s := range doc.Statuses {
		if s.Terminal {
			fmt.Fprintf(w, "%s\t-\t(terminal)\t\t\t\n", s.Status)
			continue
		}
		if r != role.None && !r.In(parseRoles(s.Roles)...) {
			continue
		}
		for _, e := range s.Edges {
			notes := ""
			if e.RequiresNotes {
				notes = "yes"
			}
			approval := e.ApprovalKind
			if approval == "" {
				approval = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.Status, e.To, e.Label, notes, approval, displayRoles(s.Roles))
		}
	}
	w.Flush()
}

func parseRoles(names []string) []role.Role {
	out := make([]role.Role, len(names))
	for i, n := range names {
		out[i] = role.Role(n)
	}
	return out
}

func displayRoles(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = role.Role(n).DisplayName()
	}
	return strings.Join(out, ", ")
}

func newWorkflowExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [name...]",
		Short: "Export transition tables as YAML",
		Long:  "Writes the named transition tables, or all of them, as a YAML document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = tableNames()
			}
			docs := make([]tableDoc, 0, len(args))
			for _, name := range args {
				doc, err := lookupTable(name)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string][]tableDoc{"workflows": docs}); err != nil {
				return fmt.Errorf("encode workflows: %w", err)
			}
			return enc.Close()
		},
	}
	return cmd
}
