package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage student groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupCreate,
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	RunE:  runGroupList,
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupListCmd)

	groupCreateCmd.Flags().String("description", "", "Group description")
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	group := &database.Group{Name: args[0], Description: mustGetString(cmd, "description")}
	if err := a.repos.Groups.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("group %q already exists", args[0])
		}
		return err
	}
	fmt.Printf("Created group %q (id %d)\n", group.Name, group.ID)
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.repos.Groups.ListGroups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No groups found")
		return nil
	}

	fmt.Printf("%-6s %-24s %s\n", "ID", "NAME", "STUDENTS")
	for _, g := range groups {
		students, err := a.repos.Students.ListStudents(ctx, database.StudentFilter{GroupID: g.ID})
		if err != nil {
			return err
		}
		fmt.Printf("%-6d %-24s %d\n", g.ID, g.Name, len(students))
	}
	return nil
}
