package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tazhate/olivabot/internal/clients/caldav"
)

func newCalendarsCmd(env *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "calendars",
		Short: "List CalDAV calendars, to pick CALDAV_CALENDAR",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			cfg, _, err := env.load()
			if err != nil {
				return err
			}
			if !cfg.CalDAVEnabled() {
				return errors.New("CALDAV_USERNAME and CALDAV_PASSWORD are required")
			}

			client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
			cals, err := client.DiscoverCalendars(cmd.Context())
			if err != nil {
				return err
			}
			if len(cals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no calendars found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME")
			for _, c := range cals {
				marker := ""
				if c.Path == cfg.CalDAVCalendar {
					marker = " *"
				}
				fmt.Fprintf(w, "%s\t%s%s\n", c.Path, c.DisplayName, marker)
			}
			return w.Flush()
		},
	}
}
