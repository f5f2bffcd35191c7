package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tazhate/olivabot/internal/booking"
)

func newAvailabilityCmd(env *runtime) *cobra.Command {
	var (
		date, clock, text   string
		employee, serviceID int64
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Check whether an employee is free for a service at a given time",
		Example: `  oliva availability --employee 1 --service 3 --date 2025-07-17 --time 10:00
  oliva availability --employee 1 --service 3 --text "mañana a las 5 pm"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer env.close()
			cfg, logger, err := env.load()
			if err != nil {
				return err
			}
			st, err := env.openStorage()
			if err != nil {
				return err
			}
			defer st.Close()

			handler, err := newBookingHandler(cfg, st, logger)
			if err != nil {
				return err
			}
			resp, err := handler.CheckAvailability(cmd.Context(), booking.Request{
				ServiceID:  booking.Int(serviceID),
				EmployeeID: booking.Int(employee),
				Date:       date,
				Time:       clock,
				DateText:   text,
			})
			if err != nil {
				return err
			}

			out, err := json.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().Int64Var(&employee, "employee", 0, "employee id")
	cmd.Flags().Int64Var(&serviceID, "service", 0, "service id")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&clock, "time", "", "start time HH:MM")
	cmd.Flags().StringVar(&text, "text", "", "free text date and time, used for missing --date/--time")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
