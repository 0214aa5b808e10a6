package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homelibrary/database"
	"homelibrary/internal/config"
	"homelibrary/internal/logging"
	"homelibrary/internal/microservices/http-api/models"
	"homelibrary/internal/microservices/http-api/repository"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// store.go holds the commands that work on the database directly. Connecting
// migrates the schema, so every command here leaves it current.

func openStore() (*gorm.DB, *slog.Logger, error) {
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, logger, nil
}

func userService(db *gorm.DB) service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewGroupRepository(db),
		repository.NewPermissionRepository(db),
	)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and default permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)
		color.Green("✓ Schema is up to date.")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a catalog JSON file, or the demo catalog without --file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		data := database.DemoCatalog()
		if file != "" {
			var err error
			if data, err = database.ReadCatalogFile(file); err != nil {
				return err
			}
		}

		db, logger, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		summary, err := database.Seed(ctx, db, data, logger)
		if err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		color.Green("✓ Catalog seeded")
		fmt.Printf("Genres: %d | Languages: %d | Authors: %d | Books: %d | Copies: %d\n",
			summary.Genres, summary.Languages, summary.Authors, summary.Books, summary.Copies)
		return nil
	},
}

var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in service.CreateUserInput
		in.Username, _ = cmd.Flags().GetString("username")
		in.Password, _ = cmd.Flags().GetString("password")
		in.Email, _ = cmd.Flags().GetString("email")
		in.Groups, _ = cmd.Flags().GetStringSlice("group")
		in.IsSuperuser, _ = cmd.Flags().GetBool("superuser")
		librarian, _ := cmd.Flags().GetBool("librarian")

		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		users := userService(db)
		user, err := users.CreateUser(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if librarian {
			if err := users.GrantPermission(ctx, user.Username, models.PermCanMarkReturned); err != nil {
				return fmt.Errorf("failed to grant %s: %w", models.PermCanMarkReturned, err)
			}
		}

		color.Green("✓ User created")
		fmt.Printf("UserID: %s\n", user.ID)
		if user.IsSuperuser {
			color.Cyan("%s is a superuser", user.Username)
		}
		return nil
	},
}

var grantCmd = &cobra.Command{
	Use:   "grant [username] [codename]",
	Short: "Give a user a permission directly, e.g. " + models.PermCanMarkReturned,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := userService(db).GrantPermission(ctx, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to grant permission: %w", err)
		}
		color.Green("✓ %s now has %s", args[0], args[1])
		return nil
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group management commands",
}

var createGroupCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a group, e.g. Librarians with --perm " + models.PermCanMarkReturned,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		perms, _ := cmd.Flags().GetStringSlice("perm")

		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer database.Close(db)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		g, err := userService(db).CreateGroup(ctx, service.GroupInput{Name: args[0], Permissions: perms})
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		color.Green("✓ Group created")
		fmt.Printf("ID: %d | Name: %s\n", g.ID, g.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd, createUserCmd, grantCmd, groupCmd)
	groupCmd.AddCommand(createGroupCmd)

	seedCmd.Flags().StringP("file", "f", "", "Catalog JSON file")

	createUserCmd.Flags().StringP("username", "u", "", "Username")
	createUserCmd.Flags().StringP("password", "p", "", "Password, at least 8 characters")
	createUserCmd.Flags().StringP("email", "e", "", "Email address")
	createUserCmd.Flags().StringSliceP("group", "g", nil, "Group to join, repeatable")
	createUserCmd.Flags().Bool("superuser", false, "Grant every permission")
	createUserCmd.Flags().Bool("librarian", false, "Grant "+models.PermCanMarkReturned)
	createUserCmd.MarkFlagRequired("username")
	createUserCmd.MarkFlagRequired("password")

	createGroupCmd.Flags().StringSlice("perm", nil, "Permission codename, repeatable")
}
