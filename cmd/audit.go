package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/audit"
	siteerrors "github.com/conneroisu/sitekit/internal/errors"
	"github.com/conneroisu/sitekit/internal/services"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check that every page works offline",
	Long: `Parse every HTML page of the built site and report the local resources
they reference that the service worker would not precache, plus a missing
offline page.

Examples:
  sitekit audit                 # report findings
  sitekit audit --strict        # exit 1 when anything is found
  sitekit audit --format json   # machine-readable report`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

var (
	auditStrict bool
	auditFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().BoolVar(&auditStrict, "strict", false, "Exit with an error when findings are reported")
	addFormatFlag(auditCmd, &auditFormat)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	report, err := services.NewAuditService(cfg, logger).Audit(commandContext(cmd))
	if err != nil {
		return err
	}

	if auditFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printAuditReport(newPrinter(cmd), report)
	}

	if auditStrict && !report.OK() {
		return siteerrors.NewValidationError(siteerrors.ErrCodeAuditFindings,
			fmt.Sprintf("%d offline coverage findings", len(report.Findings)))
	}
	return nil
}

func printAuditReport(p *printer, report *audit.Report) {
	p.line("🔍", "Audited %d pages, %d local references", report.Pages, report.References)

	if report.OK() {
		p.success("Every referenced resource is precached")
		return
	}

	for _, f := range report.Findings {
		p.warn("%s", f.String())
	}
	p.field("Findings", len(report.Findings))
}
