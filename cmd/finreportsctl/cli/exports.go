package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/finreports/internal/reporting/export"
	"github.com/odyssey-erp/finreports/jobs"
)

type submitCmd struct {
	cli    *CLI
	tenant string
	format string
	req    export.Request
}

func newSubmitCmd(c *CLI) *cobra.Command {
	sc := &submitCmd{cli: c}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue an export for a tenant",
		RunE:  sc.run,
	}

	cmd.Flags().StringVar(&sc.tenant, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&sc.req.Report, "report", "", "Report kind (profit_loss, balance_sheet, cash_flow, trial_balance, trend)")
	cmd.Flags().StringVar(&sc.format, "format", string(export.FormatCSV), "Output format (csv or xlsx)")
	cmd.Flags().StringVar(&sc.req.Start, "start", "", "Period start, YYYY-MM-DD")
	cmd.Flags().StringVar(&sc.req.End, "end", "", "Period end, YYYY-MM-DD")
	cmd.Flags().StringVar(&sc.req.AsOf, "as-of", "", "Position date, YYYY-MM-DD")
	cmd.Flags().StringVar(&sc.req.Comparison, "comparison", "", "Comparison mode")
	cmd.Flags().StringVar(&sc.req.Method, "method", "", "Cash flow method (direct or indirect)")
	cmd.Flags().StringVar(&sc.req.Metric, "metric", "", "Trend metric")
	cmd.Flags().IntVar(&sc.req.Months, "months", 0, "Trend window in months")

	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("report")

	return cmd
}

func (sc *submitCmd) run(cmd *cobra.Command, _ []string) error {
	svc, err := sc.cli.exportService()
	if err != nil {
		return err
	}
	tenantID, err := parseID("tenant", sc.tenant)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(sc.format)
	if err != nil {
		return err
	}
	rec, err := svc.Submit(cmd.Context(), tenantID, format, sc.req)
	if err != nil {
		return fmt.Errorf("submit export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "export %s queued (%s)\n", rec.ID, rec.Status)
	return nil
}

type lookupCmd struct {
	cli    *CLI
	tenant string
	id     string
	out    string
}

func (lc *lookupCmd) ids() (tenantID, exportID uuid.UUID, err error) {
	if tenantID, err = parseID("tenant", lc.tenant); err != nil {
		return
	}
	exportID, err = parseID("id", lc.id)
	return
}

func (lc *lookupCmd) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lc.tenant, "tenant", "", "Tenant id")
	cmd.Flags().StringVar(&lc.id, "id", "", "Export id")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("id")
}

func newStatusCmd(c *CLI) *cobra.Command {
	lc := &lookupCmd{cli: c}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print an export record as JSON",
		RunE:  lc.status,
	}
	lc.bind(cmd)
	return cmd
}

func (lc *lookupCmd) status(cmd *cobra.Command, _ []string) error {
	svc, err := lc.cli.exportService()
	if err != nil {
		return err
	}
	tenantID, exportID, err := lc.ids()
	if err != nil {
		return err
	}
	rec, err := svc.Status(cmd.Context(), tenantID, exportID)
	if err != nil {
		return fmt.Errorf("export status: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func newFetchCmd(c *CLI) *cobra.Command {
	lc := &lookupCmd{cli: c}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a finished export",
		RunE:  lc.fetch,
	}
	lc.bind(cmd)
	cmd.Flags().StringVar(&lc.out, "out", "", "Destination file; defaults to the export's filename, - for stdout")
	return cmd
}

func (lc *lookupCmd) fetch(cmd *cobra.Command, _ []string) error {
	svc, err := lc.cli.exportService()
	if err != nil {
		return err
	}
	tenantID, exportID, err := lc.ids()
	if err != nil {
		return err
	}
	rec, doc, err := svc.Document(cmd.Context(), tenantID, exportID)
	if err != nil {
		return fmt.Errorf("fetch export: %w", err)
	}
	if rec.Status != jobs.ExportDone {
		if rec.Error != "" {
			return fmt.Errorf("export %s is %s: %s", rec.ID, rec.Status, rec.Error)
		}
		return fmt.Errorf("export %s is %s", rec.ID, rec.Status)
	}

	out := lc.out
	if out == "" {
		out = doc.Filename
	}
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(doc.Data)
		return err
	}
	if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(doc.Data), out)
	return nil
}

func parseID(flag, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return id, nil
}
