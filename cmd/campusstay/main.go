package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "campusstay",
		Usage: "Student verification and review queue for CampusStay",
		Commands: []*cli.Command{
			serveCommand,
			migrateCommand,
			seedCommand,
			verificationsCommand,
			nanoidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
