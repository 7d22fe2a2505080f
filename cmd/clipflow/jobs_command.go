package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/amankumarsingh77/clipflow/internal/jobs"
	jobsRepository "github.com/amankumarsingh77/clipflow/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/clipflow/internal/jobs/usecase"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/db/redis"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and cancel queued jobs",
	}
	cmd.AddCommand(newJobsInspectCommand(ctx))
	cmd.AddCommand(newJobsCancelCommand(ctx))
	return cmd
}

func (c *commandContext) withJobs(cmd *cobra.Command, fn func(jobs.UseCase) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, err := redis.NewRedisClient(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("could not connect to redis: %w", err)
	}
	defer client.Close()
	return fn(jobsUsecase.NewJobsUseCase(cfg, jobsRepository.NewJobsRedisRepo(client, cfg.Queue), c.logger))
}

func newJobsInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <entity-id> [entity-id...]",
		Short: "Show every job stored for the given videos or clips",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withJobs(cmd, func(jobsUC jobs.UseCase) error {
				var rows [][]string
				now := time.Now()
				for _, id := range ids {
					for _, op := range allOperations() {
						snap, err := jobsUC.GetJob(cmd.Context(), op, id)
						if errors.Is(err, apperrors.ErrNotFound) {
							continue
						}
						if err != nil {
							return err
						}
						rows = append(rows, jobRow(snap, now))
					}
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no jobs found")
					return nil
				}
				headers := []string{"Key", "State", "Priority", "Progress", "Attempts", "Enqueued", "Ready", "Cancel", "Error"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				return nil
			})
		},
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <operation> <entity-id>",
		Short: "Remove a queued job or flag a running one for cancellation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := models.OperationType(args[0])
			if !isOperation(op) {
				return fmt.Errorf("unknown operation %q", args[0])
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid entity id: %w", err)
			}
			return ctx.withJobs(cmd, func(jobsUC jobs.UseCase) error {
				outcome, err := jobsUC.RemoveJob(cmd.Context(), op, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", models.JobKey(op, id), outcome)
				return nil
			})
		},
	}
}

func allOperations() []models.OperationType {
	return append(append([]models.OperationType(nil), models.VideoOperations...), models.ClipOperations...)
}

func isOperation(op models.OperationType) bool {
	for _, known := range allOperations() {
		if known == op {
			return true
		}
	}
	return false
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q: %w", a, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func jobRow(s *models.JobSnapshot, now time.Time) []string {
	ready := "-"
	if s.State == models.JobDelayed {
		ready = humanize.RelTime(s.ReadyAt, now, "ago", "from now")
	}
	cancel := ""
	if s.CancelRequested {
		cancel = "requested"
	}
	return []string{
		s.Key,
		string(s.State),
		fmt.Sprintf("%d", s.Priority),
		fmt.Sprintf("%.0f%%", s.Progress),
		fmt.Sprintf("%d", s.Attempts),
		humanize.RelTime(s.EnqueuedAt, now, "ago", "from now"),
		ready,
		cancel,
		s.Error,
	}
}
