package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/makerstokyo/api/pkg/signature"
)

var version = "dev"

// options holds the global flags.
type options struct {
	secret  string
	output  string
	apiURL  string
	verbose bool
}

// errNoSecret is returned by commands that need the signing secret.
var errNoSecret = errors.New("signing secret not configured. Use --secret or SIGNING_SECRET")

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "guard-admin",
		Short: "Request guard operator CLI",
		Long: `guard-admin signs and verifies payloads and links with the shared
HMAC secret, prints the origin allow-list and sends signed events to a
running API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.secret == "" {
				opts.secret = os.Getenv("SIGNING_SECRET")
			}
			if opts.apiURL == "" {
				opts.apiURL = os.Getenv("GUARD_API_URL")
			}
			switch opts.output {
			case outputText, outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (text, json, yaml)", opts.output)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.secret, "secret", "", "HMAC signing secret (env: SIGNING_SECRET)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json, yaml")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL for send-event (env: GUARD_API_URL)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	root.AddCommand(
		newVersionCmd(opts),
		newSignCmd(opts),
		newVerifyCmd(opts),
		newSignURLCmd(opts),
		newVerifyURLCmd(opts),
		newOriginsCmd(opts),
		newSendEventCmd(opts),
	)
	return root
}

func (o *options) signer(extra ...signature.Option) (*signature.Signer, error) {
	if o.secret == "" {
		return nil, errNoSecret
	}
	return signature.NewSigner(o.secret, extra...), nil
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show CLI version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version: version,
				Go:      runtime.Version(),
				OSArch:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return render(cmd.OutOrStdout(), opts.output, info, func(p *printer) {
				p.Printf("guard-admin version %s\n", info.Version)
				p.Printf("  Go:       %s\n", info.Go)
				p.Printf("  OS/Arch:  %s\n", info.OSArch)
			})
		},
	}
}

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Go      string `json:"go" yaml:"go"`
	OSArch  string `json:"os_arch" yaml:"os_arch"`
}
