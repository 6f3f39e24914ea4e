package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/constants"
	"github.com/kozaktomas/attendance/internal/database/mariadb"
	"github.com/kozaktomas/attendance/internal/worker"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Synchronize with the school roster",
}

var rosterImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Register students from the MariaDB roster",
	Long: `Read students from the school roster in MariaDB (ROSTER_DATABASE_URL) and
register every student that is not registered yet. Groups are created by name.

The roster table needs the columns student_id, first_name, last_name,
group_name and photo_path. Relative photo paths are resolved against
--photo-dir (ROSTER_PHOTO_DIR). Students without a photo are reported and skipped.

Examples:
  attendance roster import --dry-run
  attendance roster import --table roster_2026 --photo-dir /srv/roster/photos`,
	RunE: runRosterImport,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterImportCmd)

	rosterImportCmd.Flags().String("table", "", "Roster table (default ROSTER_TABLE or \"roster\")")
	rosterImportCmd.Flags().String("photo-dir", "", "Base directory of relative photo paths (default ROSTER_PHOTO_DIR)")
	rosterImportCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	rosterImportCmd.Flags().Bool("dry-run", false, "Only report what would be imported")
}

// rosterPhotoPath resolves a roster photo path against the base directory.
func rosterPhotoPath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

func runRosterImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	table := mustGetString(cmd, "table")
	if table == "" {
		table = a.cfg.Roster.Table
	}
	photoDir := mustGetString(cmd, "photo-dir")
	if photoDir == "" {
		photoDir = a.cfg.Roster.PhotoDir
	}

	fmt.Println("Connecting to roster database...")
	roster, err := mariadb.NewPool(a.cfg.Roster.DatabaseURL)
	if err != nil {
		return err
	}
	defer roster.Close()

	entries, err := roster.ListRoster(ctx, table)
	if err != nil {
		return err
	}

	var pending []mariadb.RosterEntry
	for _, e := range entries {
		existing, err := a.repos.Students.GetStudent(ctx, e.StudentID)
		if err != nil {
			return err
		}
		if existing == nil {
			pending = append(pending, e)
		}
	}

	fmt.Printf("Roster entries: %d, not registered yet: %d\n", len(entries), len(pending))
	if len(pending) == 0 {
		return nil
	}

	if mustGetBool(cmd, "dry-run") {
		for _, e := range pending {
			group := e.GroupName
			if group == "" {
				group = "-"
			}
			fmt.Printf("  %-16s %-32s %-10s %s\n", e.StudentID, e.FirstName+" "+e.LastName, group,
				rosterPhotoPath(photoDir, e.PhotoPath))
		}
		return nil
	}

	bar := newProgressBar(len(pending), "Importing roster", "students")
	failures := make(map[string]string)

	summary, runErr := worker.Run(ctx, mustGetInt(cmd, "concurrency"), pending,
		func(ctx context.Context, e mariadb.RosterEntry) error {
			return importRosterEntry(ctx, a.service, e, photoDir)
		},
		func(e mariadb.RosterEntry, err error) {
			if err != nil && !errors.Is(err, worker.ErrSkip) {
				failures[e.StudentID] = err.Error()
			}
			bar.Add(1)
		})
	bar.Finish()

	fmt.Printf("\n\nImported: %d, failed: %d, skipped: %d\n", summary.Succeeded, summary.Failed, summary.Skipped)
	if len(failures) > 0 {
		ids := make([]string, 0, len(failures))
		for id := range failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("  %s: %s\n", id, failures[id])
		}
	}
	return runErr
}

func importRosterEntry(ctx context.Context, svc *attendance.Service, e mariadb.RosterEntry, photoDir string) error {
	if e.PhotoPath == "" {
		return errors.New("no photo in roster")
	}
	photo, err := os.ReadFile(rosterPhotoPath(photoDir, e.PhotoPath))
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}

	var groupID int64
	if e.GroupName != "" {
		group, err := svc.EnsureGroup(ctx, e.GroupName)
		if err != nil {
			return err
		}
		groupID = group.ID
	}

	_, err = svc.RegisterStudent(ctx, attendance.RegisterInput{
		StudentID: e.StudentID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		GroupID:   groupID,
		Photo:     photo,
	})
	if errors.Is(err, attendance.ErrStudentExists) {
		// Registered by someone else since the roster was read.
		return worker.ErrSkip
	}
	return err
}
