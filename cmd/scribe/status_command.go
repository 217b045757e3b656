package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and worker status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.DaemonStatus
			if err := ctx.apiJSON(http.MethodGet, "/api/status", nil, &status); err != nil {
				return err
			}
			var list api.JobListResponse
			if err := ctx.apiJSON(http.MethodGet, "/api/jobs", nil, &list); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			daemonKind := statusError
			daemonMsg := "not running"
			if status.Running {
				daemonKind = statusOK
				daemonMsg = fmt.Sprintf("pid %d", status.PID)
			}
			fmt.Fprintln(out, renderStatusLine("daemon", daemonKind, daemonMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("job store", statusInfo, status.JobDBPath, colorize))
			if status.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("last error", statusWarn, status.LastError, colorize))
			}
			for _, dep := range status.Dependencies {
				kind := statusOK
				msg := dep.Command
				if !dep.Available {
					kind = statusError
					if dep.Optional {
						kind = statusWarn
					}
					msg = dep.Detail
				}
				fmt.Fprintln(out, renderStatusLine(dep.Name, kind, msg, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "  pending %d | processing %d | completed %d | failed %d | cancelled %d\n\n",
				status.Stats.Pending, status.Stats.Processing, status.Stats.Completed,
				status.Stats.Failed, status.Stats.Cancelled)

			if len(list.Jobs) > 0 {
				rows := make([][]string, 0, len(list.Jobs))
				for _, job := range list.Jobs {
					rows = append(rows, []string{
						fmt.Sprintf("%d", job.ID),
						job.Status,
						fmt.Sprintf("%.0f%%", job.Progress*100),
						formatSpeed(job.SpeedFactor),
						truncatePath(job.SourcePath, 48),
					})
				}
				fmt.Fprintln(out, renderTable([]columnSpec{
					{Title: "ID", Align: alignRight},
					{Title: "Status"},
					{Title: "Progress", Align: alignRight},
					{Title: "Speed", Align: alignRight},
					{Title: "Source"},
				}, rows))
			}

			if len(status.Workers) > 0 {
				fmt.Fprintln(out)
				for _, line := range renderSectionHeader("Workers", colorize) {
					fmt.Fprintln(out, line)
				}
				rows := make([][]string, 0, len(status.Workers))
				for _, w := range status.Workers {
					rows = append(rows, []string{
						w.WorkerID[:shortIDLen(w.WorkerID)],
						fmt.Sprintf("%d", w.JobID),
						fmt.Sprintf("%d", w.PID),
						w.State,
						w.LastBeat,
					})
				}
				fmt.Fprintln(out, renderTable([]columnSpec{
					{Title: "Worker"},
					{Title: "Job", Align: alignRight},
					{Title: "PID", Align: alignRight},
					{Title: "State"},
					{Title: "Last Beat"},
				}, rows))
			}
			return nil
		},
	}
}

func formatSpeed(speed float64) string {
	if speed <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fx", speed)
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}

func shortIDLen(id string) int {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return idx
	}
	if len(id) > 8 {
		return 8
	}
	return len(id)
}
