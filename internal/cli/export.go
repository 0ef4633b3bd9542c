package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"getitdone/internal/backend"
	"getitdone/internal/model"
	"getitdone/internal/publish"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var to string
	var filter string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your task list as markdown",
		Example: strings.TrimSpace(`
# Print the checklist
getitdone export

# Write active tasks to ./out/tasks.md
getitdone export --filter active --to ./out
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return writeErr(cmd, err)
			}
			return withClient(cmd, app, func(ctx context.Context, c backend.Client) error {
				u, err := c.CurrentUser(ctx)
				if err != nil {
					return err
				}
				if u == nil {
					return errors.New("export: not signed in (run `getitdone login <name>`)")
				}
				tasks, err := c.ListTasks(ctx)
				if err != nil {
					return err
				}
				md := publish.RenderTasksMarkdown(*u, tasks, publish.RenderOptions{Filter: f, Now: time.Now()})

				if strings.TrimSpace(to) == "" {
					_, err := fmt.Fprint(cmd.OutOrStdout(), md)
					return err
				}
				res, err := publish.WriteTasks(md, to, publish.WriteOptions{Overwrite: overwrite})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, res)
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Write tasks.md into this directory (default: print to stdout)")
	cmd.Flags().StringVar(&filter, "filter", string(model.FilterAll), "Which tasks to include (all|active|completed)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing tasks.md")
	return cmd
}
