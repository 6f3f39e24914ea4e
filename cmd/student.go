package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage registered students",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <photo>",
	Short: "Register a student with a reference photo",
	Long: `Register a student with a reference photo and enroll the first detected face.

A photo without a detectable face still registers the student, run
"attendance enroll sync" after replacing the photo.

Examples:
  attendance student add --id 2026-001 --first Jana --last Nováková jana.jpg
  attendance student add --id 2026-002 --first Petr --last Dvořák --group 1.A petr.png`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentAdd,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	RunE:  runStudentList,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd)
	studentCmd.AddCommand(studentListCmd)

	studentAddCmd.Flags().String("id", "", "Student ID (required)")
	studentAddCmd.Flags().String("first", "", "First name (required)")
	studentAddCmd.Flags().String("last", "", "Last name (required)")
	studentAddCmd.Flags().String("group", "", "Group name, created if missing")

	studentListCmd.Flags().Int64("group-id", 0, "Only students of this group")
	studentListCmd.Flags().StringP("query", "q", "", "Search by name or student ID")
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	photo, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var groupID int64
	if name := mustGetString(cmd, "group"); name != "" {
		group, err := a.service.EnsureGroup(ctx, name)
		if err != nil {
			return err
		}
		groupID = group.ID
	}

	reg, err := a.service.RegisterStudent(ctx, attendance.RegisterInput{
		StudentID: mustGetString(cmd, "id"),
		FirstName: mustGetString(cmd, "first"),
		LastName:  mustGetString(cmd, "last"),
		GroupID:   groupID,
		Photo:     photo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s)\n", reg.Student.StudentID, reg.Student.FullName())
	fmt.Printf("  Photo:      %s\n", reg.Student.PhotoPath)
	fmt.Printf("  Enrollment: %s\n", reg.Enrollment.Status)
	if reg.PossibleDuplicate != nil {
		fmt.Printf("Warning: face is very similar to student %s (distance %.4f)\n",
			reg.PossibleDuplicate.StudentID, reg.PossibleDuplicate.Distance)
	}
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	groupID := mustGetInt64(cmd, "group-id")
	students, err := a.repos.Students.ListStudents(ctx, database.StudentFilter{
		GroupID: groupID,
		Query:   mustGetString(cmd, "query"),
	})
	if err != nil {
		return err
	}
	enrollments, err := a.repos.Enrollments.ListEnrollments(ctx, groupID)
	if err != nil {
		return err
	}
	status := make(map[string]string, len(enrollments))
	for _, e := range enrollments {
		status[e.StudentID] = e.Status
	}

	if len(students) == 0 {
		fmt.Println("No students found")
		return nil
	}

	fmt.Printf("%-16s %-32s %-8s %s\n", "STUDENT ID", "NAME", "GROUP", "ENROLLMENT")
	for i := range students {
		s := &students[i]
		group := "-"
		if s.GroupID > 0 {
			group = fmt.Sprintf("%d", s.GroupID)
		}
		st := status[s.StudentID]
		if st == "" {
			st = "pending"
		}
		fmt.Printf("%-16s %-32s %-8s %s\n", s.StudentID, s.FullName(), group, st)
	}
	fmt.Printf("\nTotal: %d\n", len(students))
	return nil
}
