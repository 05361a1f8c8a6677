package main

import (
	"campusstay/internal/seed"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed demo users and pending verifications",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()
		logger := logrus.StandardLogger()

		awsConfig, err := awsConfigFor(ctx, cfg)
		if err != nil {
			return err
		}

		b, err := openBackends(ctx, cfg, awsConfig, logger)
		if err != nil {
			return fmt.Errorf("failed to open backends: %w", err)
		}
		defer b.Close()

		logrus.Info("Seeding users...")
		if err := seed.SeedFakeUsers(ctx, b.users); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		logrus.Info("Seeding pending verifications...")
		svc := b.verificationService(cfg, logger, nil)
		if err := seed.SeedPendingVerifications(ctx, b.users, svc); err != nil {
			return fmt.Errorf("failed to seed verifications: %w", err)
		}

		logrus.Info("Seed data loaded successfully")

		return nil
	},
}
