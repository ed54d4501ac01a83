package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telekom/bulkmail/pkg/campaign"
	"github.com/telekom/bulkmail/pkg/output"
)

func NewPreviewCommand() *cobra.Command {
	var (
		src          sourceFlags
		tmpl         templateFlags
		count        int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the first contacts' messages without sending anything",
		Args:  cobra.NoArgs,
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
			if err := cfg.ValidateForPreview(); err != nil {
				return err
			}

			runner, err := campaign.New(&cfg, rt.Logger())
			if err != nil {
				return err
			}
			previews, err := runner.Preview(cmd.Context(), count)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WritePreviews(rt.Writer(), previews)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, previews)
		},
	}

	src.register(cmd)
	tmpl.register(cmd)
	cmd.Flags().IntVar(&count, "count", 1, "Number of contacts to render")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")

	return cmd
}
