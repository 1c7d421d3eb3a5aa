// Command simulate drives a car headlessly on a track and prints the
// trajectory. A drive script lists the controls to hold and for how many
// frames; without one the car runs flat out.
//
//	simulate run --track classic --script "throttle:40,throttle+right:12,coast:10" --format csv
//	simulate tracks
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/andialuis/VRaze/game/config"
	"github.com/andialuis/VRaze/game/engine"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config-dir",
		Value:   "configs",
		Usage:   "directory containing track configurations",
		Sources: cli.EnvVars("CONFIG_DIR"),
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "headless scripted driving on VRaze tracks",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "drive a script and print the trajectory",
				Flags: []cli.Flag{
					configDirFlag(),
					&cli.StringFlag{
						Name:    "track",
						Aliases: []string{"t"},
						Usage:   "track id in the config directory (default track when empty)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "path to a track JSON file, overrides --track",
					},
					&cli.StringFlag{
						Name:    "script",
						Aliases: []string{"s"},
						Usage:   `comma separated segments like "throttle:40,throttle+right:12,brake:5,steer=-0.2:10"`,
					},
					&cli.Float64Flag{
						Name:  "dt",
						Value: 0.1,
						Usage: "seconds per frame",
					},
					&cli.Float64Flag{
						Name:  "steer",
						Value: 3,
						Usage: "wheel angle in radians used by left/right",
					},
					&cli.DurationFlag{
						Name:  "duration",
						Value: 10 * time.Second,
						Usage: "simulated time to hold the throttle when no script is given",
					},
					&cli.BoolFlag{
						Name:  "keep-going",
						Usage: "keep driving after the last checkpoint",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "summary",
						Usage:   "output format: summary, csv or json",
					},
				},
				Action: runAction,
			},
			{
				Name:   "tracks",
				Usage:  "list the available tracks",
				Flags:  []cli.Flag{configDirFlag()},
				Action: tracksAction,
			},
		},
	}
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func loadTrack(cmd *cli.Command) (*engine.RaceConfig, error) {
	if file := cmd.String("file"); file != "" {
		return engine.LoadRaceConfig(file)
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, err
	}
	if id := cmd.String("track"); id != "" {
		return manager.LoadConfig(id)
	}
	return manager.GetDefault(), nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	track, err := loadTrack(cmd)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	var steps []Step
	if script := cmd.String("script"); script != "" {
		steps, err = parseScript(script, cmd.Float64("steer"))
		if err != nil {
			return err
		}
	}

	result, err := simulate(track, steps, Options{
		DeltaTime:    cmd.Float64("dt"),
		MaxTime:      cmd.Duration("duration").Seconds(),
		StopOnFinish: !cmd.Bool("keep-going"),
	})
	if err != nil {
		return err
	}

	w := output(cmd)
	switch strings.ToLower(cmd.String("format")) {
	case "csv":
		return writeCSV(w, result.Frames)
	case "json":
		return writeJSON(w, result)
	case "summary", "":
		return writeSummary(w, result)
	default:
		return fmt.Errorf("unknown format %q (use summary, csv or json)", cmd.String("format"))
	}
}

func tracksAction(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	configs, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	w := output(cmd)
	if len(configs) == 0 {
		fmt.Fprintf(w, "No track files; the built-in %q circuit is used.\n", manager.GetDefaultID())
		return nil
	}
	for _, c := range configs {
		marker := " "
		if c.ConfigID == manager.GetDefaultID() {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-10s %-18s %3dx%-3d cell %-4g %d checkpoints  %s\n",
			marker, c.ConfigID, c.Name, c.Width, c.Height, c.CellSize, c.Checkpoints, c.Description)
	}
	return nil
}
