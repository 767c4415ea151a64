package cli

import (
	"fmt"

	"github.com/sadopc/preptrack/internal/model"
	"github.com/spf13/cobra"
)

func apptCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appt",
		Aliases: []string{"appointment", "appointments"},
		Short:   "Work with appointment requests",
	}
	cmd.AddCommand(apptListCmd(o), apptApproveCmd(o), apptCancelCmd(o))
	return cmd
}

func apptListCmd(o *options) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.AppointmentStatus(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("unknown appointment status %q", status)
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			appts, err := c.ListAppointments(commandContext(cmd), st)
			if err != nil {
				return fmt.Errorf("list appointments: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(appts) == 0 {
				fmt.Fprintln(out, "No appointments.")
				return nil
			}
			t := newTable("ID", "Date", "Time", "Meeting", "Client", "Status")
			for _, a := range appts {
				t.Row(a.ID, a.Date, a.Time, string(a.MeetingType), a.ClientID, string(a.Status))
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only appointments with this status")
	return cmd
}

func apptApproveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "approve APPOINTMENT_ID",
		Short: "Confirm a pending appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, e, err := o.engine()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			appt, err := c.GetAppointment(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get appointment: %w", err)
			}
			appt, err = e.Appointments.Approve(ctx, appt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s is %s.\n", appt.ID, appt.Status)
			return nil
		},
	}
}

func apptCancelCmd(o *options) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel APPOINTMENT_ID",
		Short: "Cancel a pending appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, e, err := o.engine()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			appt, err := c.GetAppointment(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get appointment: %w", err)
			}
			appt, err = e.Appointments.Cancel(ctx, appt, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Appointment %s is %s.\n", appt.ID, appt.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "optional cancellation reason")
	return cmd
}
