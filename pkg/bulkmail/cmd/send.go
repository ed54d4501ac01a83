package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/campaign"
	"github.com/telekom/bulkmail/pkg/output"
)

func NewSendCommand() *cobra.Command {
	var (
		src          sourceFlags
		tmpl         templateFlags
		delivery     deliveryFlags
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message per contact over a single SMTP session",
		Example: `  bulkmail send --source csv --source-file contacts.csv \
    --template body.html --subject "Hello {{ name }}" \
    --from news@example.com --smtp-server smtp.example.com \
    --smtp-user news@example.com --delay 2 --test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(outputFormat)
			if err != nil {
				return err
			}

			cfg := rt.Config()
			src.apply(cmd, &cfg)
			tmpl.apply(cmd, &cfg)
			delivery.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := rt.Logger()
			runner, err := campaign.New(&cfg, log)
			if err != nil {
				return err
			}
			report, runErr := runner.Run(cmd.Context())
			if report != nil && (runErr == nil || report.Total() > 0) {
				if err := writeReport(rt, format, report); err != nil {
					log.Warnw("Failed to write report", "error", err)
				}
			}
			return runErr
		},
	}

	src.register(cmd)
	tmpl.register(cmd)
	delivery.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Report format: table, json, yaml")

	return cmd
}

func writeReport(rt *runtimeState, format output.Format, report *campaign.Report) error {
	if format == output.FormatTable {
		output.WriteReport(rt.Writer(), report)
		return nil
	}
	return output.WriteObject(rt.Writer(), format, report)
}
