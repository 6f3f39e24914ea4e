package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/worker"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Maintain face enrollments",
}

var enrollSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Compute missing enrollments from the stored reference photos",
	Long: `Compute enrollments for students that have none, whose photo had no
detectable face or failed, or whose enrollment was produced by another model.

Examples:
  # Enroll everything that is missing for the configured model
  attendance enroll sync

  # Recompute every enrollment (e.g. after switching EMBEDDING_MODEL)
  attendance enroll sync --all --concurrency 4`,
	RunE: runEnrollSync,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.AddCommand(enrollSyncCmd)

	enrollSyncCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	enrollSyncCmd.Flags().Bool("all", false, "Recompute all enrollments")
	enrollSyncCmd.Flags().Int("limit", 0, "Limit number of students to process (0 = no limit)")
}

func runEnrollSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var students []database.Student
	if mustGetBool(cmd, "all") {
		students, err = a.repos.Students.ListStudents(ctx, database.StudentFilter{})
	} else {
		students, err = a.service.PendingEnrollments(ctx, a.cfg.Embedding.Model)
	}
	if err != nil {
		return err
	}
	if limit := mustGetInt(cmd, "limit"); limit > 0 && len(students) > limit {
		students = students[:limit]
	}
	if len(students) == 0 {
		fmt.Println("All students are enrolled!")
		return nil
	}
	fmt.Printf("Students to enroll: %d (model %s)\n\n", len(students), a.cfg.Embedding.Model)

	bar := newProgressBar(len(students), "Enrolling faces", "students")

	var mu sync.Mutex
	statuses := make(map[string]int)
	var failures []string

	summary, runErr := worker.Run(ctx, mustGetInt(cmd, "concurrency"), students,
		func(ctx context.Context, s database.Student) error {
			e, err := a.service.Reenroll(ctx, s.StudentID)
			if err != nil {
				return err
			}
			mu.Lock()
			statuses[e.Status]++
			mu.Unlock()
			return nil
		},
		func(s database.Student, err error) {
			if err != nil && !errors.Is(err, worker.ErrSkip) {
				failures = append(failures, fmt.Sprintf("%s: %v", s.StudentID, err))
			}
			bar.Add(1)
		})
	bar.Finish()

	fmt.Printf("\n\nEnrolled: %d, no face: %d, extraction failed: %d\n",
		statuses[database.EnrollmentOK], statuses[database.EnrollmentNoFace], statuses[database.EnrollmentFailed])
	if summary.Failed > 0 {
		fmt.Printf("Errors: %d\n", summary.Failed)
		for _, f := range failures {
			fmt.Printf("  %s\n", f)
		}
	}
	if summary.Skipped > 0 {
		fmt.Printf("Interrupted, %d students not processed\n", summary.Skipped)
	}
	return runErr
}
