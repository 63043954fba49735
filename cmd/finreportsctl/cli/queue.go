package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/finreports/jobs"
)

type queueCmd struct {
	cli      *CLI
	archived int
}

func newQueueCmd(c *CLI) *cobra.Command {
	qc := &queueCmd{cli: c}
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the export queue and its archived failures",
		RunE:  qc.run,
	}
	cmd.Flags().IntVar(&qc.archived, "archived", 10, "Number of archived tasks to list, 0 to skip")
	return cmd
}

func (qc *queueCmd) run(cmd *cobra.Command, _ []string) error {
	inspector := qc.cli.inspector
	if inspector == nil {
		return errNotConfigured
	}
	info, err := inspector.GetQueueInfo(jobs.QueueExports)
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		return fmt.Errorf("inspect queue: %w", err)
	}
	if info == nil {
		info = &asynq.QueueInfo{Queue: jobs.QueueExports}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tPAUSED")
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%t\n",
		jobs.QueueExports, info.Pending, info.Active, info.Scheduled, info.Retry, info.Archived, info.Paused)
	if err := w.Flush(); err != nil {
		return err
	}

	if qc.archived <= 0 || info.Archived == 0 {
		return nil
	}
	tasks, err := inspector.ListArchivedTasks(jobs.QueueExports, asynq.PageSize(qc.archived), asynq.Page(1))
	if err != nil {
		return fmt.Errorf("list archived: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tTYPE\tRETRIED\tLAST ERROR")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.ID, t.Type, t.Retried, t.LastErr)
	}
	return w.Flush()
}
