// Package cli implements finreportsctl, the operator tool for report exports and their queue.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
	"github.com/odyssey-erp/finreports/jobs"
)

// ExportService is satisfied by *jobs.Exports.
type ExportService interface {
	Submit(ctx context.Context, tenantID uuid.UUID, format export.Format, req export.Request) (jobs.ExportRecord, error)
	Status(ctx context.Context, tenantID, exportID uuid.UUID) (jobs.ExportRecord, error)
	Document(ctx context.Context, tenantID, exportID uuid.UUID) (jobs.ExportRecord, export.Document, error)
}

// QueueInspector is satisfied by *asynq.Inspector.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

var errNotConfigured = errors.New("finreportsctl: not configured")

// Options wires the CLI.
type Options struct {
	Exports   ExportService
	Inspector QueueInspector
	Output    io.Writer
}

// CLI is the finreportsctl command tree.
type CLI struct {
	exports   ExportService
	inspector QueueInspector
	rootCmd   *cobra.Command
}

// NewCLI builds the command tree.
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	c := &CLI{exports: opts.Exports, inspector: opts.Inspector}
	c.rootCmd = c.newRootCmd()
	c.rootCmd.SetOut(opts.Output)
	return c
}

// Execute runs the command named by args.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finreportsctl",
		Short:         "Operate financial report exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	exportsCmd := &cobra.Command{
		Use:   "exports",
		Short: "Submit, inspect and download report exports",
	}
	exportsCmd.AddCommand(newSubmitCmd(c), newStatusCmd(c), newFetchCmd(c))

	cmd.AddCommand(exportsCmd, newQueueCmd(c))
	return cmd
}

func (c *CLI) exportService() (ExportService, error) {
	if c.exports == nil {
		return nil, errNotConfigured
	}
	return c.exports, nil
}
