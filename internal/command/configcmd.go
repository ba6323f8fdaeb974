package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/probablyarth/smartcache-go/internal/config"
)

// ConfigCommandBuilder returns the "config" subcommand, which prints the
// effective config file contents with defaults applied.
func ConfigCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "print the effective configuration file",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := config.Load("")
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(f)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if f.Source != "" {
				fmt.Fprintf(w, "# %s\n", f.Source)
			} else {
				fmt.Fprintln(w, "# defaults")
			}
			_, err = w.Write(out)
			return err
		},
	}
}
