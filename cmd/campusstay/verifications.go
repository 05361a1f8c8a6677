package main

import (
	"campusstay/pkg/types"
	"context"
	"fmt"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var verificationsCommand = &cli.Command{
	Name:  "verifications",
	Usage: "Inspect stored student verifications",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "Print verification records, oldest first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "status",
					Aliases: []string{"s"},
					Usage:   "Filter by status: all, pending, verified or rejected",
					Value:   string(types.VerificationFilterAll),
				},
			},
			Action: listVerifications,
		},
	},
}

func listVerifications(c *cli.Context) error {
	filter, err := types.ParseVerificationFilter(c.String("status"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	awsConfig, err := awsConfigFor(ctx, cfg)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, awsConfig, logrus.StandardLogger())
	if err != nil {
		return fmt.Errorf("failed to open backends: %w", err)
	}
	defer b.Close()

	records, err := b.records.Verifications(ctx, filter)
	if err != nil {
		return err
	}

	for _, record := range records {
		pp.Println(record)
	}

	counts, err := b.records.CountByStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d shown (pending %d, verified %d, rejected %d)\n",
		len(records),
		counts[types.VerificationStatusPending],
		counts[types.VerificationStatusVerified],
		counts[types.VerificationStatusRejected],
	)

	return nil
}
