// Command sfs is a small CLI around the file system core: format a raw
// image file, print its superblock and inode layout, or scan it for
// corruption without mounting it.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dargueta/sfs/block"
	"github.com/dargueta/sfs/device"
	"github.com/dargueta/sfs/fs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "sfs",
		Usage: "Format, inspect, and check sfs disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image file",
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "preset",
						Usage: "named device size, see `sfs presets`",
					},
					&cli.Uint64Flag{
						Name:  "blocks",
						Usage: "exact number of blocks, overrides --preset",
					},
				},
				Action: runFormat,
			},
			{
				Name:      "debug",
				Usage:     "Print the superblock and every valid inode",
				ArgsUsage: "IMAGE_FILE",
				Action:    runDebug,
			},
			{
				Name:      "check",
				Usage:     "Scan an image and report every corrupt reference found",
				ArgsUsage: "IMAGE_FILE",
				Action:    runCheck,
			},
			{
				Name:   "presets",
				Usage:  "List named device size presets",
				Action: runPresets,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("sfs: %s", err.Error())
	}
}

func blockCountFromFlags(c *cli.Context) (uint32, error) {
	if c.IsSet("blocks") {
		return uint32(c.Uint64("blocks")), nil
	}
	if c.IsSet("preset") {
		preset, err := device.LookupPreset(c.String("preset"))
		if err != nil {
			return 0, err
		}
		return preset.TotalBlocks, nil
	}
	return 0, fmt.Errorf("one of --blocks or --preset is required")
}

func openDeviceFile(path string) (*device.FileDevice, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	dev, err := device.NewFileDevice(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return dev, nil
}

func runFormat(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing required argument IMAGE_FILE")
	}

	totalBlocks, err := blockCountFromFlags(c)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := file.Truncate(int64(totalBlocks) * block.Size); err != nil {
		return err
	}

	dev, err := device.NewFileDevice(file)
	if err != nil {
		return err
	}

	return fs.Format(dev)
}

func runDebug(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing required argument IMAGE_FILE")
	}

	dev, err := openDeviceFile(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	return fs.Debug(os.Stdout, dev)
}

func runCheck(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing required argument IMAGE_FILE")
	}

	dev, err := openDeviceFile(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fs.MountReport(dev); err != nil {
		fmt.Fprintf(os.Stderr, "found corruption: %s\n", err)
		return err
	}

	fmt.Println("no corruption found")
	return nil
}

func runPresets(c *cli.Context) error {
	for _, preset := range device.Presets() {
		fmt.Printf("%-10s %6d blocks  %s\n", preset.Slug, preset.TotalBlocks, preset.Notes)
	}
	return nil
}
