package main

import (
	"context"
	"fmt"
	"os"

	"emergency-triage/cmd/bootstrap"
	"emergency-triage/config"
	"emergency-triage/internal/domain/entity"
	"emergency-triage/internal/infrastructure/database"
	"emergency-triage/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "emergency-triage",
		Short: "Emergency intake triage queue service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(provisionRoomsCmd())
	rootCmd.AddCommand(issueTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	// Initialize application with all dependencies
	app, err := bootstrap.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	// Run the application
	app.Run()
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and station stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Connect()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := database.Migrate(app.DB); err != nil {
				return err
			}
			logrus.Info("Database migrated")
			return nil
		},
	}
}

func provisionRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision-rooms",
		Short: "Create the treatment room pool (existing labels are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Connect()
			if err != nil {
				return err
			}
			defer app.Close()

			size, _ := cmd.Flags().GetInt("size")
			prefix, _ := cmd.Flags().GetString("prefix")
			if size == 0 {
				size = app.Config.Rooms.PoolSize
			}
			if prefix == "" {
				prefix = app.Config.Rooms.LabelPrefix
			}

			if err := database.Migrate(app.DB); err != nil {
				return err
			}
			created, err := app.NewRoomUsecase().ProvisionPool(context.Background(), prefix, size)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d room(s)\n", created)
			return nil
		},
	}
	cmd.Flags().Int("size", 0, "Number of rooms (defaults to ROOM_POOL_SIZE)")
	cmd.Flags().String("prefix", "", "Room label prefix (defaults to ROOM_LABEL_PREFIX)")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a station access token for a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			rawID, _ := cmd.Flags().GetString("staff-id")

			if !entity.StaffRole(role).Valid() {
				return fmt.Errorf("unknown role %q (nurse, doctor, admin)", role)
			}
			staffID := uuid.New()
			if rawID != "" {
				parsed, err := uuid.Parse(rawID)
				if err != nil {
					return fmt.Errorf("invalid staff id: %w", err)
				}
				staffID = parsed
			}

			cfg, err := loadConfigOnly()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			token, _, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(staffID, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("role", string(entity.RoleNurse), "Staff role: nurse, doctor or admin")
	cmd.Flags().String("email", "", "Staff email carried in the token")
	cmd.Flags().String("staff-id", "", "Staff UUID (random when empty)")
	return cmd
}

func loadConfigOnly() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
