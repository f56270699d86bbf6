package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/makerstokyo/api/pkg/origin"
)

type originsResult struct {
	Production bool     `json:"production" yaml:"production"`
	Origins    []string `json:"origins" yaml:"origins"`
}

func newOriginsCmd(opts *options) *cobra.Command {
	var production bool

	c := &cobra.Command{
		Use:   "origins",
		Short: "Print the effective origin allow-list",
		Long: `Origins builds the allow-list the API would use from ALLOWED_ORIGINS and
ORIGIN_PREVIEW_HOST (or VERCEL_URL). Development origins are included
unless --production is set or APP_ENV is production.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("production") {
				production = os.Getenv("APP_ENV") == "production"
			}
			preview := os.Getenv("ORIGIN_PREVIEW_HOST")
			if preview == "" {
				preview = os.Getenv("VERCEL_URL")
			}

			res := originsResult{
				Production: production,
				Origins: origin.BuildAllowList(origin.Config{
					AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
					PreviewHost:    preview,
					Production:     production,
				}),
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(p *printer) {
				for _, o := range res.Origins {
					p.Printf("%s\n", o)
				}
			})
		},
	}
	c.Flags().BoolVar(&production, "production", false, "Exclude development origins")
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
