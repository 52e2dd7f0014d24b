package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/wire"
)

var escalationCmd = &cobra.Command{
	Use:   "escalation",
	Short: "Manage escalations",
	Long:  "Create, list, inspect and resolve paused escalations",
}

var escalationCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new escalation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		originAgent, _ := cmd.Flags().GetString("agent")
		reason, _ := cmd.Flags().GetString("reason")
		fromPhone, _ := cmd.Flags().GetString("from")
		fromIdentity, _ := cmd.Flags().GetString("identity")
		school, _ := cmd.Flags().GetString("school")
		escalationType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetString("priority")
		sessionID, _ := cmd.Flags().GetString("session")
		needed, _ := cmd.Flags().GetString("needed")
		contextPayload, _ := cmd.Flags().GetString("context")

		resp, err := wire.EscalationService().CreateEscalation(ctx, primary.CreateEscalationRequest{
			OriginAgent:     originAgent,
			EscalationType:  escalationType,
			Priority:        priority,
			SchoolID:        schoolFlag(school),
			FromPhone:       fromPhone,
			FromIdentity:    fromIdentity,
			SessionID:       sessionID,
			Reason:          reason,
			WhatAgentNeeded: needed,
			Context:         contextPayload,
		})
		if err != nil {
			return fmt.Errorf("failed to create escalation: %w", err)
		}

		fmt.Printf("✓ Escalation %s created (state: %s)\n", resp.EscalationID, resp.Escalation.State)
		return nil
	},
}

var escalationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		state, _ := cmd.Flags().GetString("state")
		agentTag, _ := cmd.Flags().GetString("agent")
		school, _ := cmd.Flags().GetString("school")

		escalations, err := wire.EscalationService().ListEscalations(ctx, primary.EscalationFilters{
			SchoolID:    schoolFlag(school),
			State:       state,
			OriginAgent: agentTag,
		})
		if err != nil {
			return fmt.Errorf("failed to list escalations: %w", err)
		}

		if len(escalations) == 0 {
			fmt.Println("No escalations found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAGENT\tSTATE\tROUND\tSCHOOL\tFROM\tREASON\tCREATED")
		fmt.Fprintln(w, "--\t-----\t-----\t-----\t------\t----\t------\t-------")
		for _, item := range escalations {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				item.ID,
				item.OriginAgent,
				item.State,
				item.RoundNumber,
				item.SchoolID,
				item.FromPhone,
				truncate(item.Reason, 40),
				item.CreatedAt,
			)
		}
		w.Flush()
		return nil
	},
}

var escalationShowCmd = &cobra.Command{
	Use:   "show [escalation-id]",
	Short: "Show escalation details with round history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		escalationID := args[0]
		school, _ := cmd.Flags().GetString("school")
		schoolID := schoolFlag(school)

		esc, err := wire.EscalationService().GetEscalation(ctx, escalationID, schoolID)
		if err != nil {
			return fmt.Errorf("escalation not found: %w", err)
		}

		fmt.Printf("Escalation: %s\n", esc.ID)
		fmt.Printf("School: %s\n", esc.SchoolID)
		fmt.Printf("Origin Agent: %s\n", esc.OriginAgent)
		if esc.EscalationType != "" {
			fmt.Printf("Type: %s\n", esc.EscalationType)
		}
		fmt.Printf("Priority: %s\n", esc.Priority)
		fmt.Printf("State: %s\n", esc.State)
		fmt.Printf("Round: %d\n", esc.RoundNumber)
		fmt.Printf("From: %s\n", esc.FromPhone)
		if esc.FromIdentity != "" {
			fmt.Printf("Identity: %s\n", esc.FromIdentity)
		}
		fmt.Printf("Reason: %s\n", esc.Reason)
		if esc.WhatAgentNeeded != "" {
			fmt.Printf("Agent Needed: %s\n", esc.WhatAgentNeeded)
		}
		if esc.AdminDecision != "" {
			fmt.Printf("Decision: %s\n", esc.AdminDecision)
		}
		if esc.AdminInstruction != "" {
			fmt.Printf("Instruction: %s\n", esc.AdminInstruction)
		}
		if esc.ResolvedBy != "" {
			fmt.Printf("Resolved By: %s\n", esc.ResolvedBy)
		}
		fmt.Printf("Created: %s\n", esc.CreatedAt)
		if esc.ResolvedAt != "" {
			fmt.Printf("Resolved: %s\n", esc.ResolvedAt)
		}

		rounds, err := wire.EscalationService().ListRounds(ctx, escalationID, schoolID)
		if err != nil {
			return fmt.Errorf("failed to list rounds: %w", err)
		}
		if len(rounds) > 0 {
			fmt.Println("\nRounds:")
			for _, r := range rounds {
				fmt.Printf("  [%d] %s", r.RoundNumber, r.AuthorityType)
				if r.AuthorityRequest != "" {
					fmt.Printf("  request: %s", r.AuthorityRequest)
				}
				if r.AuthorityResponse != "" {
					fmt.Printf("  response: %s", r.AuthorityResponse)
				}
				if r.AgentResponse != "" {
					fmt.Printf("  agent: %s", r.AgentResponse)
				}
				fmt.Println()
			}
		}

		return nil
	},
}

var escalationClarifyCmd = &cobra.Command{
	Use:   "clarify [escalation-id]",
	Short: "Request clarification from the origin agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		question, _ := cmd.Flags().GetString("question")
		school, _ := cmd.Flags().GetString("school")

		if question == "" {
			return fmt.Errorf("--question is required")
		}

		err := wire.EscalationService().RequestClarification(ctx, args[0], schoolFlag(school), question)
		if err != nil {
			return fmt.Errorf("failed to request clarification: %w", err)
		}

		fmt.Printf("✓ Escalation %s awaiting clarification\n", args[0])
		return nil
	},
}

var escalationNotifyCmd = &cobra.Command{
	Use:   "notify [escalation-id]",
	Short: "Present an escalation to an authority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		authority, _ := cmd.Flags().GetString("authority")
		school, _ := cmd.Flags().GetString("school")

		if authority == "" {
			authority = GetAuthority()
		}
		if authority == "" {
			return fmt.Errorf("--authority is required")
		}

		err := wire.EscalationService().NotifyAuthority(ctx, args[0], schoolFlag(school), authority)
		if err != nil {
			return fmt.Errorf("failed to notify authority: %w", err)
		}

		fmt.Printf("✓ Authority %s notified of %s (focus locked)\n", authority, args[0])
		return nil
	},
}

var escalationResolveCmd = &cobra.Command{
	Use:   "resolve [escalation-id]",
	Short: "Record a decision and resume the origin agent",
	Long:  "Record an authority decision (APPROVED or DENIED), resume the origin agent with it, and deliver the agent's reply to the original requester",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		decision, _ := cmd.Flags().GetString("decision")
		instruction, _ := cmd.Flags().GetString("instruction")
		school, _ := cmd.Flags().GetString("school")

		if decision != primary.DecisionApproved && decision != primary.DecisionDenied {
			return fmt.Errorf("--decision must be %s or %s", primary.DecisionApproved, primary.DecisionDenied)
		}

		result, err := wire.ResumptionService().Resume(ctx, primary.ResumeRequest{
			EscalationID:      args[0],
			SchoolID:          schoolFlag(school),
			AuthorityIdentity: GetAuthority(),
			Decision:          decision,
			Instruction:       instruction,
		})
		if err != nil {
			return fmt.Errorf("failed to resolve escalation: %w", err)
		}

		if result.AlreadyTerminal {
			color.Yellow("Escalation %s already %s; nothing to do", result.EscalationID, result.State)
			return nil
		}

		color.Green("✓ Escalation %s resolved (%s)", result.EscalationID, decision)
		if result.ReplyDelivered {
			fmt.Println("  Reply delivered to original requester")
		} else if result.ReplyText != "" {
			color.Yellow("  Reply crafted but delivery failed; recorded in history")
		}
		return nil
	},
}

func init() {
	escalationCreateCmd.Flags().StringP("agent", "a", "", "Origin agent tag: PA, TA or GA (required)")
	escalationCreateCmd.Flags().StringP("reason", "r", "", "Why the agent paused (required)")
	escalationCreateCmd.Flags().StringP("from", "f", "", "Original requester phone (required)")
	escalationCreateCmd.Flags().String("identity", "", "Requester transport identity (group:... for group chats)")
	escalationCreateCmd.Flags().String("school", "", "School (tenant) ID")
	escalationCreateCmd.Flags().StringP("type", "t", "", "Escalation type (display/filter only)")
	escalationCreateCmd.Flags().StringP("priority", "p", "", "Priority (display/filter only)")
	escalationCreateCmd.Flags().String("session", "", "Conversation session ID")
	escalationCreateCmd.Flags().String("needed", "", "What the agent needed to proceed")
	escalationCreateCmd.Flags().String("context", "", "Opaque JSON context payload")

	escalationListCmd.Flags().StringP("state", "s", "", "Filter by state")
	escalationListCmd.Flags().StringP("agent", "a", "", "Filter by origin agent tag")
	escalationListCmd.Flags().String("school", "", "School (tenant) ID")

	escalationShowCmd.Flags().String("school", "", "School (tenant) ID")

	escalationClarifyCmd.Flags().StringP("question", "q", "", "Clarification question for the agent (required)")
	escalationClarifyCmd.Flags().String("school", "", "School (tenant) ID")

	escalationNotifyCmd.Flags().String("authority", "", "Authority identity to notify")
	escalationNotifyCmd.Flags().String("school", "", "School (tenant) ID")

	escalationResolveCmd.Flags().StringP("decision", "d", "", "Decision: APPROVED or DENIED (required)")
	escalationResolveCmd.Flags().StringP("instruction", "i", "", "Instruction accompanying the decision")
	escalationResolveCmd.Flags().String("school", "", "School (tenant) ID")

	escalationCmd.AddCommand(escalationCreateCmd)
	escalationCmd.AddCommand(escalationListCmd)
	escalationCmd.AddCommand(escalationShowCmd)
	escalationCmd.AddCommand(escalationClarifyCmd)
	escalationCmd.AddCommand(escalationNotifyCmd)
	escalationCmd.AddCommand(escalationResolveCmd)
}

// EscalationCmd returns the escalation command
func EscalationCmd() *cobra.Command {
	return escalationCmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
