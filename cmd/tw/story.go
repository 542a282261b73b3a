package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/story"
	"github.com/zulandar/tracewell/internal/workflow"
)

// actorFlags identifies the user a write command acts as.
type actorFlags struct {
	id   string
	role string
}

func (f *actorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "as", "", "user id to act as (required)")
	cmd.Flags().StringVar(&f.role, "role", "", "role to act with (required)")
	cmd.MarkFlagRequired("as")
	cmd.MarkFlagRequired("role")
}

func (f *actorFlags) actor() (role.Actor, error) {
	r, err := role.Parse(f.role)
	if err != nil {
		return role.Actor{}, err
	}
	if r == role.None {
		return role.Actor{}, errors.New("--role is required")
	}
	return role.Actor{ID: strings.TrimSpace(f.id), Role: r}, nil
}

func newStoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "User story commands",
	}

	cmd.AddCommand(newStoryCreateCmd())
	cmd.AddCommand(newStoryListCmd())
	cmd.AddCommand(newStoryShowCmd())
	cmd.AddCommand(newStoryTransitionsCmd())
	cmd.AddCommand(newStoryMoveCmd())
	cmd.AddCommand(newStoryApproveCmd())
	return cmd
}

func newStoryCreateCmd() *cobra.Command {
	var (
		configPath  string
		as          actorFlags
		title       string
		description string
		acceptance  string
		priority    string
		owner       string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new story",
		Long:  "Creates a user story in draft with an auto-generated ID.",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := as.actor()
			if err != nil {
				return err
			}
			return runStoryCreate(cmd, configPath, actor, story.CreateOpts{
				Title:              title,
				Description:        description,
				AcceptanceCriteria: acceptance,
				Priority:           models.Priority(priority),
				OwnerID:            owner,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	as.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "story title (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "acceptance criteria")
	cmd.Flags().StringVar(&priority, "priority", "medium", "priority (critical, high, medium, low)")
	cmd.Flags().StringVar(&owner, "owner", "", "owning user id (defaults to --as)")
	cmd.MarkFlagRequired("title")
	return cmd
}

func runStoryCreate(cmd *cobra.Command, configPath string, actor role.Actor, opts story.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	s, err := story.Create(gormDB, actor, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created story %s\n", s.ID)
	fmt.Fprintf(out, "Status: %s\n", s.Status)
	return nil
}

func newStoryListCmd() *cobra.Command {
	var (
		configPath string
		status     string
		owner      string
		priority   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories",
		Long:  "Lists stories with optional filters. Output is formatted as a table.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoryList(cmd, configPath, story.ListFilters{
				Status:   workflow.StoryStatus(status),
				OwnerID:  owner,
				Priority: models.Priority(priority),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	return cmd
}

func runStoryList(cmd *cobra.Command, configPath string, filters story.ListFilters) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	stories, err := story.List(gormDB, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(stories) == 0 {
		fmt.Fprintln(out, "No stories found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRI\tOWNER\tVER")
	for _, s := range stories {
		owner := s.OwnerID
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, truncate(s.Title, 40), s.Status, s.Priority, owner, s.Version)
	}
	w.Flush()
	return nil
}

func newStoryShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show story details",
		Long:  "Displays a story with its approvals and audit history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoryShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	return cmd
}

func runStoryShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	s, err := story.Get(gormDB, id)
	if err != nil {
		return err
	}
	history, err := story.History(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %s\n", s.ID)
	fmt.Fprintf(out, "Title:     %s\n", s.Title)
	fmt.Fprintf(out, "Status:    %s (version %d)\n", s.Status, s.Version)
	fmt.Fprintf(out, "Priority:  %s\n", s.Priority)
	fmt.Fprintf(out, "Owner:     %s\n", s.OwnerID)
	fmt.Fprintf(out, "Author:    %s\n", s.AuthorID)
	if s.ApprovedAt != nil {
		fmt.Fprintf(out, "Approved:  %s by %s\n", s.ApprovedAt.Format(time.RFC3339), s.ApprovedBy)
	}
	if s.Description != "" {
		fmt.Fprintf(out, "\nDescription:\n  %s\n", s.Description)
	}
	if s.AcceptanceCriteria != "" {
		fmt.Fprintf(out, "\nAcceptance Criteria:\n  %s\n", s.AcceptanceCriteria)
	}

	if len(s.Approvals) > 0 {
		fmt.Fprintf(out, "\nApprovals:\n")
		for _, a := range s.Approvals {
			fmt.Fprintf(out, "  %s  %-16s %-9s %s (%s)\n",
				a.CreatedAt.Format(time.RFC3339), a.Kind, a.Decision, a.ApproverID, a.ApproverRole)
		}
	}

	if len(history) > 0 {
		fmt.Fprintf(out, "\nHistory:\n")
		printHistory(out, history)
	}
	return nil
}

func printHistory(out io.Writer, entries []models.AuditEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		change := e.Action
		if e.ToStatus != "" {
			change = fmt.Sprintf("%s %s -> %s", e.Action, dash(e.FromStatus), e.ToStatus)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s (%s)\t%s\n",
			e.CreatedAt.Format(time.RFC3339), change, e.ActorID, e.ActorRole, truncate(e.Notes, 50))
	}
	w.Flush()
}

func newStoryTransitionsCmd() *cobra.Command {
	var (
		configPath string
		as         actorFlags
	)

	cmd := &cobra.Command{
		Use:   "transitions <id>",
		Short: "List transitions available to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := as.actor()
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			s, err := story.Get(gormDB, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			allowed := story.AllowedTransitions(s, actor)
			if len(allowed) == 0 {
				fmt.Fprintf(out, "No transitions from %s for %s.\n", s.Status, actor.Role.DisplayName())
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TO\tLABEL\tNOTES\tAPPROVAL")
			for _, t := range allowed {
				notes := ""
				if t.RequiresNotes {
					notes = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.To, t.Label, notes, dash(string(t.ApprovalKind)))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	as.register(cmd)
	return cmd
}

func newStoryMoveCmd() *cobra.Command {
	var (
		configPath string
		as         actorFlags
		to         string
		notes      string
		version    int
	)

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a story to a new status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := as.actor()
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			s, err := story.Transition(gormDB, actor, story.TransitionRequest{
				StoryID:         args[0],
				To:              workflow.StoryStatus(to),
				Notes:           notes,
				ExpectedVersion: version,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Story %s is now %s (version %d)\n", s.ID, s.Status, s.Version)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	as.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "target status (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "justification notes")
	cmd.Flags().IntVar(&version, "expect-version", 0, "fail unless the story is at this version")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newStoryApproveCmd() *cobra.Command {
	var (
		configPath string
		as         actorFlags
		kind       string
		reject     bool
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Record an approval decision",
		Long:  "Records an internal_review or stakeholder decision for the story's current review cycle. Use --reject with --notes to record a rejection.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := as.actor()
			if err != nil {
				return err
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			decision := models.DecisionApproved
			if reject {
				decision = models.DecisionRejected
			}
			a, err := story.RecordApproval(gormDB, actor, story.ApprovalOpts{
				StoryID:  args[0],
				Kind:     workflow.ApprovalKind(kind),
				Decision: decision,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s for story %s\n", a.Kind, a.Decision, a.StoryID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to TraceWell config file")
	as.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", "", "approval kind: internal_review or stakeholder (required)")
	cmd.Flags().BoolVar(&reject, "reject", false, "record a rejection instead of an approval")
	cmd.Flags().StringVar(&notes, "notes", "", "decision notes (required with --reject)")
	cmd.MarkFlagRequired("kind")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
