package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bjarke-xyz/fmh/internal/core"
	"github.com/bjarke-xyz/fmh/internal/viewmodel"
	"github.com/bjarke-xyz/fmh/pkg/flow"
	"github.com/bjarke-xyz/fmh/pkg/scope"
	"github.com/spf13/cobra"
)

func claimCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Show and change claims",
	}
	cmd.AddCommand(claimShowCmd(opts), claimCreateCmd(opts), claimCommentCmd(opts), claimStatusCmd(opts))
	return cmd
}

// withClaim runs fn with a claim card that lives as long as the command.
func (o *rootOptions) withClaim(cmd *cobra.Command, fn func(vm *viewmodel.ClaimCardViewModel) error) error {
	appContext, closeApp, err := o.openApp()
	if err != nil {
		return err
	}
	defer closeApp()
	vm := viewmodel.NewClaimCardViewModel(cmd.Context(), appContext.Deps.ClaimRepository)
	defer vm.Close()
	return fn(vm)
}

func claimShowCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a claim with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := intArg("claim id", args[0])
			if err != nil {
				return err
			}
			return opts.withClaim(cmd, func(vm *viewmodel.ClaimCardViewModel) error {
				vm.Init(id)
				if !watch {
					fullClaim, err := flow.First(cmd.Context(), vm.DataFullClaim())
					if err != nil {
						return err
					}
					printClaim(cmd.OutOrStdout(), fullClaim)
					return nil
				}
				err := vm.DataFullClaim().Collect(cmd.Context(), func(fullClaim core.FullClaim) error {
					printClaim(cmd.OutOrStdout(), fullClaim)
					fmt.Fprintln(cmd.OutOrStdout())
					return nil
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing the claim as it changes")
	return cmd
}

func printClaim(out io.Writer, fullClaim core.FullClaim) {
	claim := fullClaim.Claim
	id := 0
	if claim.Id != nil {
		id = *claim.Id
	}
	fmt.Fprintf(out, "#%v %v [%v]\n", id, claim.Title, claim.Status)
	if claim.Description != "" {
		fmt.Fprintf(out, "%v\n", claim.Description)
	}
	fmt.Fprintf(out, "creator:  %v\n", fullClaim.Creator.FullName())
	if fullClaim.Executor != nil {
		fmt.Fprintf(out, "executor: %v\n", fullClaim.Executor.FullName())
	}
	fmt.Fprintf(out, "planned:  %v\n", formatMillis(claim.PlanExecuteDate))
	if claim.FactExecuteDate != nil {
		fmt.Fprintf(out, "executed: %v\n", formatMillis(*claim.FactExecuteDate))
	}
	fmt.Fprintf(out, "comments: %v\n", len(fullClaim.Comments))
	for _, c := range fullClaim.Comments {
		fmt.Fprintf(out, "  %v %v: %v\n", formatMillis(c.Comment.CreateDate), c.Creator.FullName(), c.Comment.Description)
	}
}

func claimCreateCmd(opts *rootOptions) *cobra.Command {
	var claim core.Claim
	var planned string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a claim",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if planned != "" {
				planExecuteDate, err := parseDate(planned)
				if err != nil {
					return err
				}
				claim.PlanExecuteDate = planExecuteDate
			}
			return opts.withClaim(cmd, func(vm *viewmodel.ClaimCardViewModel) error {
				fired := viewmodel.Await(func() *scope.Job {
					return vm.Save(claim)
				}, vm.ClaimCreatedEvent, vm.CreateClaimExceptionEvent)
				return report(cmd.OutOrStdout(), fired, vm.ClaimCreatedEvent, vm.CreateClaimExceptionEvent)
			})
		},
	}
	cmd.Flags().StringVar(&claim.Title, "title", "", "title")
	cmd.Flags().StringVar(&claim.Description, "description", "", "description")
	cmd.Flags().IntVar(&claim.CreatorId, "creator", 0, "creator user id")
	cmd.Flags().StringVar(&planned, "planned", "", "planned execution date (date, RFC3339 or epoch millis)")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("creator")
	return cmd
}

func claimCommentCmd(opts *rootOptions) *cobra.Command {
	var creatorId int
	cmd := &cobra.Command{
		Use:   "comment <claimId> <text>",
		Short: "Comment on a claim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimId, err := intArg("claim id", args[0])
			if err != nil {
				return err
			}
			comment := core.ClaimComment{
				ClaimId:     &claimId,
				Description: args[1],
				CreatorId:   creatorId,
			}
			return opts.withClaim(cmd, func(vm *viewmodel.ClaimCardViewModel) error {
				fired := viewmodel.Await(func() *scope.Job {
					return vm.CreateClaimComment(comment)
				}, vm.ClaimCommentCreatedEvent, vm.ClaimCommentCreateExceptionEvent)
				return report(cmd.OutOrStdout(), fired, vm.ClaimCommentCreatedEvent, vm.ClaimCommentCreateExceptionEvent)
			})
		},
	}
	cmd.Flags().IntVar(&creatorId, "creator", 0, "creator user id")
	cmd.MarkFlagRequired("creator")
	return cmd
}

func claimStatusCmd(opts *rootOptions) *cobra.Command {
	var executorId, creatorId int
	var commentText string
	cmd := &cobra.Command{
		Use:   "status <claimId> <OPEN|IN_PROGRESS|CANCELLED|EXECUTED>",
		Short: "Move a claim to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimId, err := intArg("claim id", args[0])
			if err != nil {
				return err
			}
			status, err := core.ParseClaimStatus(args[1])
			if err != nil {
				return err
			}
			var executor *int
			if cmd.Flags().Changed("executor") {
				executor = &executorId
			}
			comment := core.ClaimComment{
				Description: commentText,
				CreatorId:   creatorId,
			}
			return opts.withClaim(cmd, func(vm *viewmodel.ClaimCardViewModel) error {
				fired := viewmodel.Await(func() *scope.Job {
					return vm.ChangeClaimStatus(claimId, status, executor, comment)
				}, vm.ClaimStatusChangedEvent, vm.ClaimStatusChangeExceptionEvent)
				return report(cmd.OutOrStdout(), fired, vm.ClaimStatusChangedEvent, vm.ClaimStatusChangeExceptionEvent)
			})
		},
	}
	cmd.Flags().IntVar(&executorId, "executor", 0, "executor user id")
	cmd.Flags().StringVar(&commentText, "comment", "", "why the status changes")
	cmd.Flags().IntVar(&creatorId, "creator", 0, "user id of the comment author")
	cmd.MarkFlagRequired("comment")
	cmd.MarkFlagRequired("creator")
	return cmd
}
