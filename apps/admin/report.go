package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/definite-d/zonosign-backend/core"
)

const stampLayout = "2006-01-02 15:04"

func formatDuration(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(stampLayout)
}

func formatScore(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func requireUser(userID string) (string, error) {
	if uid := core.CleanString(userID); uid != "" {
		return uid, nil
	}
	return "", errors.New("--user is required")
}

func (cli *commandLine) newOverviewCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show a user's progress overview and lesson records",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := requireUser(userID)
			if err != nil {
				return err
			}
			ov, err := cli.progressSvc.Overview(cmd.Context(), uid)
			if err != nil {
				return err
			}
			records, err := cli.progressSvc.ModuleProgress(cmd.Context(), uid)
			if err != nil {
				return err
			}

			current := "-"
			if ov.CurrentModule != nil {
				current = strconv.FormatInt(*ov.CurrentModule, 10)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Modules:  %d / %d completed\n", ov.CompletedModules, ov.TotalModules)
			fmt.Fprintf(out, "Current:  %s\n", current)
			fmt.Fprintf(out, "Progress: %.2f%%\n", ov.OverallProgress)
			fmt.Fprintf(out, "Time:     %s\n", formatDuration(ov.TimeSpentTotal))

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					strconv.FormatInt(r.ModuleID, 10),
					strconv.FormatInt(r.LessonID, 10),
					string(r.Status),
					formatScore(r.Score),
					formatDuration(r.TimeSpent),
					formatStamp(&r.LastAccessed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Module", "Lesson", "Status", "Score", "Time", "Last accessed"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	return cmd
}

func (cli *commandLine) newSessionsCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a user's practice and transcription sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := requireUser(userID)
			if err != nil {
				return err
			}
			sessions, err := cli.sessionSvc.History(cmd.Context(), uid)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				start := s.StartTime
				rows = append(rows, []string{
					s.ID,
					string(s.Kind),
					s.Data.Language,
					formatStamp(&start),
					formatStamp(s.EndTime),
					strconv.Itoa(s.Data.FrameCount),
					formatScore(s.Accuracy),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Language", "Started", "Ended", "Frames", "Accuracy"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	return cmd
}
