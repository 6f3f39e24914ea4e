package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/matcher"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <photo>",
	Short: "Identify the student in a photo",
	Long: `Identify the student in a photo against the stored enrollments.

Without --record nothing is written, the command only reports the closest
enrolled face and whether it is within the match threshold.

Examples:
  attendance match probe.jpg
  attendance match --group-id 3 --record probe.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Int64("group-id", 0, "Only match students of this group")
	matchCmd.Flags().Bool("record", false, "Store an attendance record on a confident match")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	photo, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	groupID := mustGetInt64(cmd, "group-id")

	if mustGetBool(cmd, "record") {
		mark, err := a.service.MarkAttendance(ctx, photo, groupID)
		var noMatch *attendance.NoMatchError
		switch {
		case errors.As(err, &noMatch):
			fmt.Println(noMatch.Error())
			return nil
		case err != nil:
			return reportMatchError(err)
		}
		fmt.Printf("Attendance recorded for %s (%s), distance %.4f\n",
			mark.Student.StudentID, mark.Student.FullName(), mark.Record.Distance)
		fmt.Printf("  Record: %s at %s\n", mark.Record.ID, mark.Record.RecordedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	id, err := a.service.Identify(ctx, photo, groupID)
	if err != nil {
		return reportMatchError(err)
	}

	fmt.Printf("Compared with %d enrollments (%d skipped), threshold %.3f\n",
		id.Compared, id.Skipped, a.service.Threshold())
	if !id.Confident {
		fmt.Printf("No match, closest distance: %.4f\n", id.Distance)
		return nil
	}
	fmt.Printf("Match: %s, distance %.4f\n", id.Identity, id.Distance)
	return nil
}

func reportMatchError(err error) error {
	if errors.Is(err, matcher.ErrNoFace) {
		return errors.New("no face found in photo")
	}
	return err
}
