package command

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// users.go lists and deactivates accounts through the admin API.

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User administration through the API",
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List users, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		list, err := httpClient.ListUsers()
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if list.Count == 0 {
			fmt.Println("No users found.")
			return nil
		}

		fmt.Printf("Users (%d total):\n\n", list.Count)
		for _, u := range list.Results {
			line := fmt.Sprintf("%s | %-20s | %s", u.ID, u.Username, strings.Join(u.Groups, ","))
			switch {
			case !u.IsActive:
				color.HiBlack("%s (inactive)", line)
			case u.IsSuperuser:
				color.Cyan("%s (superuser)", line)
			default:
				fmt.Println(line)
			}
		}
		return nil
	},
}

var deactivateUserCmd = &cobra.Command{
	Use:   "deactivate [user-id]",
	Short: "Disable logins for a user without deleting their loans",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		u, err := httpClient.DeactivateUser(args[0])
		if err != nil {
			return fmt.Errorf("failed to deactivate user: %w", err)
		}
		color.Green("✓ %s deactivated", u.Username)
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List groups and their permissions through the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		list, err := httpClient.ListGroups()
		if err != nil {
			return fmt.Errorf("failed to list groups: %w", err)
		}
		if list.Count == 0 {
			fmt.Println("No groups found.")
			return nil
		}
		for _, g := range list.Results {
			fmt.Printf("ID: %d | Name: %s | Permissions: %s\n", g.ID, g.Name, strings.Join(g.Permissions, ", "))
		}
		return nil
	},
}

func init() {
	usersCmd.AddCommand(listUsersCmd, deactivateUserCmd)
	rootCmd.AddCommand(usersCmd, groupsCmd)
}
