package main

import (
	"campusstay/internal/utils"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
)

var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Generate NanoIDs for use in seed files and fixtures",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Length of each ID",
			Value: utils.NanoidSize,
		},
	},
	Action: func(c *cli.Context) error {
		return writeNanoIDs(c.App.Writer, c.Int("count"), c.Int("size"))
	},
}

func writeNanoIDs(w io.Writer, count, size int) error {
	for range count {
		id := utils.NanoID()
		if size != utils.NanoidSize {
			id = utils.NanoIDSize(size)
		}
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}
