package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const internalEventsPath = "/api/v1/internal/events"

type eventRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type eventResponse struct {
	ID         string `json:"id" yaml:"id"`
	Type       string `json:"type" yaml:"type"`
	OccurredAt string `json:"occurred_at" yaml:"occurred_at"`
}

func newSendEventCmd(opts *options) *cobra.Command {
	var data string

	c := &cobra.Command{
		Use:   "send-event <type>",
		Short: "Send a signed event to the internal events endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.apiURL == "" {
				return errors.New("API URL not configured. Use --api-url or GUARD_API_URL")
			}
			s, err := opts.signer()
			if err != nil {
				return err
			}
			req := eventRequest{Type: args[0]}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				req.Data = json.RawMessage(data)
			}
			body, err := json.Marshal(req)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}

			var trace io.Writer
			if opts.verbose {
				trace = cmd.ErrOrStderr()
			}
			respBody, _, err := NewClient(opts.apiURL, s, trace).PostSigned(cmd.Context(), internalEventsPath, body)
			if err != nil {
				return err
			}

			var res eventResponse
			if err := json.Unmarshal(respBody, &res); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			return render(cmd.OutOrStdout(), opts.output, res, func(p *printer) {
				p.Printf("accepted %s (%s)\n", res.ID, res.Type)
			})
		},
	}
	c.Flags().StringVar(&data, "data", "", "Event payload as JSON")
	return c
}
