package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect attendance records",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records, newest first",
	Long: `List attendance records, newest first.

Examples:
  attendance attendance list --since 2026-09-01
  attendance attendance list --student 2026-001 --limit 20`,
	RunE: runAttendanceList,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd)

	attendanceListCmd.Flags().String("student", "", "Only records of this student ID")
	attendanceListCmd.Flags().Int64("group-id", 0, "Only records restricted to this group")
	attendanceListCmd.Flags().String("since", "", "Records at or after (YYYY-MM-DD or RFC 3339)")
	attendanceListCmd.Flags().String("until", "", "Records before (YYYY-MM-DD or RFC 3339)")
	attendanceListCmd.Flags().Int("limit", constants.DefaultAttendanceListLimit, "Maximum number of records")
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	since, err := parseDateFlag(cmd, "since")
	if err != nil {
		return err
	}
	until, err := parseDateFlag(cmd, "until")
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.repos.Attendance.ListAttendance(ctx, database.AttendanceFilter{
		StudentID: mustGetString(cmd, "student"),
		GroupID:   mustGetInt64(cmd, "group-id"),
		Since:     since,
		Until:     until,
		Limit:     mustGetInt(cmd, "limit"),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No attendance records found")
		return nil
	}

	fmt.Printf("%-20s %-16s %-8s %-8s %s\n", "TIME", "STUDENT ID", "GROUP", "DISTANCE", "RECORD")
	for _, r := range records {
		group := "-"
		if r.GroupID > 0 {
			group = fmt.Sprintf("%d", r.GroupID)
		}
		fmt.Printf("%-20s %-16s %-8s %-8.4f %s\n",
			r.RecordedAt.Local().Format("2006-01-02 15:04:05"), r.StudentID, group, r.Distance, r.ID)
	}
	fmt.Printf("\nTotal: %d\n", len(records))
	return nil
}
