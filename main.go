package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/mailer"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Grocery storefront API",
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		seedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens the database.
func bootstrap() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := config.NewLogger(cfg.Log)

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func serveCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API and the order event consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if migrate {
				if err := database.MigrateUp(db); err != nil {
					return err
				}
			}
			return serve(cfg, log, db)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before starting")
	return cmd
}

func serve(cfg *config.Config, log *logrus.Logger, db *gorm.DB) error {
	store := repositories.NewStore(db)
	notifications := services.NewNotificationService(store.Notifications, store.Users, log)

	broker, err := server.NewBroker(cfg, notifications.HandleOrderEvent, log)
	if err != nil {
		return fmt.Errorf("failed to initialize event broker: %w", err)
	}
	defer broker.Close()

	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP, cfg.App.StoreName, log)
	svc := server.NewServices(cfg, store, smtpMailer, broker.Publisher, notifications, log)
	app := server.NewApp(cfg, db, svc, log, server.Options{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := broker.Run(ctx); err != nil {
			log.WithError(err).Error("order event consumer stopped")
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.App.Port).Info("starting server")
		serverErr <- app.Listen(cfg.App.Port)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("error during shutdown")
	}
	log.Info("server gracefully stopped")
	return nil
}

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "manage the database schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.MigrateDown(db, steps); err != nil {
				return err
			}
			log.WithField("steps", steps).Info("migrated down")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	var dir string
	create := &cobra.Command{
		Use:   "create [name]",
		Short: "create an empty up/down migration pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, down, err := database.CreateMigration(dir, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Println("Created SQL up script:", up)
			fmt.Println("Created SQL down script:", down)
			return nil
		},
	}
	create.Flags().StringVar(&dir, "dir", "internal/database/migrations", "migrations directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "migrate all the way up",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.MigrateUp(db); err != nil {
				return err
			}
			log.Info("migrated up")
			return nil
		},
	}, down, create)
	return cmd
}

func seedCommand() *cobra.Command {
	var opts database.SeedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "create the admin account and a starter catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.AdminPassword == "" {
				opts.AdminPassword = os.Getenv("ADMIN_PASSWORD")
			}
			if len(opts.AdminPassword) < 8 {
				return fmt.Errorf("admin password must be at least 8 characters (use --admin-password or ADMIN_PASSWORD)")
			}

			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.MigrateUp(db); err != nil {
				return err
			}
			return database.Seed(db, opts, log)
		},
	}
	cmd.Flags().StringVar(&opts.AdminUsername, "admin-username", "admin", "admin username")
	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", "admin@storefront.local", "admin email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin password (default $ADMIN_PASSWORD)")
	return cmd
}
