package main

import (
	"bufio"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Show worker logs for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if follow {
				resp, err := ctx.apiStream(fmt.Sprintf("/api/jobs/%d/logs?follow=1", id))
				if err != nil {
					return err
				}
				defer resp.Body.Close()
				scanner := bufio.NewScanner(resp.Body)
				for scanner.Scan() {
					fmt.Fprintln(out, scanner.Text())
				}
				return scanner.Err()
			}

			var logs api.JobLogsResponse
			path := fmt.Sprintf("/api/jobs/%d/logs?lines=%d", id, lines)
			if err := ctx.apiJSON(http.MethodGet, path, nil, &logs); err != nil {
				return err
			}
			for _, line := range logs.Lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of trailing lines per worker log")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log lines until interrupted")
	return cmd
}
