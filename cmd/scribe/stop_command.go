package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			var result api.StopResponse
			if err := ctx.apiJSON(http.MethodPost, fmt.Sprintf("/api/jobs/%d/stop", id), nil, &result); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Stopped {
				fmt.Fprintf(out, "job %d stopped\n", id)
				return nil
			}
			fmt.Fprintf(out, "job %d already finished (%s)\n", id, result.Status)
			return nil
		},
	}
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}
