package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quill/app/config"
	"quill/app/logging"
	"quill/app/services"
)

// Version is the quill release, overridden at build time with -ldflags
var Version = "0.1.0"

type options struct {
	configPath string
}

// NewRootCommand builds the quill command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "quill",
		Short:         "Quill blog server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(
		serveCmd(opts),
		initCmd(opts),
		cleanCmd(opts),
		backupCmd(opts),
		restoreCmd(opts),
		createUserCmd(opts),
		versionCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args and returns the process exit code
func Execute() int {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the blog service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Log, cmd.ErrOrStderr())
			return RunAppServer(cmd.Context(), cfg, logger)
		},
	}
}

func initCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbPath, err := loadDiskConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(dbPath); err == nil {
				fmt.Fprintln(out, "Database already exists. Use 'clean' first if you want to reinitialize.")
				return nil
			}
			if err := os.MkdirAll(dbPath, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}

			repo, err := openRepository(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			if err := repo.Close(); err != nil {
				return err
			}

			fmt.Fprintln(out, "Database initialized successfully")
			return nil
		},
	}
}

func cleanCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the blog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dbPath, err := loadDiskConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "Database is already clean (does not exist)")
				return nil
			}
			if !yes && !confirm(cmd, "Are you sure you want to clean the database? This cannot be undone.") {
				fmt.Fprintln(out, "Operation cancelled")
				return nil
			}

			if err := os.RemoveAll(dbPath); err != nil {
				return fmt.Errorf("failed to clean database: %w", err)
			}
			fmt.Fprintln(out, "Database cleaned successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func backupCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbPath, err := loadDiskConfig(opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				return errors.New("no database exists to backup")
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create backup directory: %w", err)
			}

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			backupFile := filepath.Join(dir, fmt.Sprintf("backup_%d.db", time.Now().UnixNano()))
			f, err := os.Create(backupFile)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			defer f.Close()

			if _, err := repo.DB().Backup(f, 0); err != nil {
				return fmt.Errorf("failed to backup database: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up successfully to %s\n", backupFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", filepath.Join("data", "backups"), "directory backups are written to")
	return cmd
}

func restoreCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the database from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dbPath, err := loadDiskConfig(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			backupFile := args[0]

			fi, err := os.Stat(backupFile)
			if os.IsNotExist(err) {
				return fmt.Errorf("backup file does not exist: %s", backupFile)
			}
			if err != nil {
				return err
			}
			if fi.Size() == 0 {
				return fmt.Errorf("backup file is empty: %s", backupFile)
			}

			if _, err := os.Stat(dbPath); err == nil {
				if !yes && !confirm(cmd, "Existing database found. Do you want to replace it?") {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
				if err := os.RemoveAll(dbPath); err != nil {
					return fmt.Errorf("failed to remove existing database: %w", err)
				}
			}
			if err := os.MkdirAll(dbPath, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			f, err := os.Open(backupFile)
			if err != nil {
				return fmt.Errorf("failed to open backup file: %w", err)
			}
			defer f.Close()

			err = func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic occurred during restore: %v", r)
					}
				}()
				return repo.DB().Load(f, 4)
			}()
			if err != nil {
				return fmt.Errorf("failed to restore database: %w", err)
			}

			fmt.Fprintln(out, "Database restored successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func createUserCmd(opts *options) *cobra.Command {
	var (
		username string
		email    string
		password string
		author   bool
	)
	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a user, optionally with an author profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			authService := services.NewAuthService(repo.Users, repo.Authors)
			user, err := authService.Register(username, email, password)
			if err != nil {
				return fmt.Errorf("failed to create user %q: %w", username, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created user %s (id %d)\n", user.Username, user.ID)

			if author {
				a, err := authService.RegisterAuthor(user.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created author profile (id %d)\n", a.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "login name (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.Flags().BoolVar(&author, "author", false, "also create an author profile so the user can publish posts")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the quill version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quill version %s\n", Version)
		},
	}
}

// loadDiskConfig loads the config for commands that work on the database files
func loadDiskConfig(opts *options) (*config.Config, string, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, "", err
	}
	if cfg.Database.InMemory {
		return nil, "", errors.New("database is configured in memory; nothing on disk to manage")
	}
	return cfg, cfg.Database.Path, nil
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	var response string
	fmt.Fscanln(cmd.InOrStdin(), &response)
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}
