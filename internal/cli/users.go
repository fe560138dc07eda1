package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tgienger/annotate/internal/models"
	"github.com/tgienger/annotate/internal/service"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operators and workers",
	}
	cmd.AddCommand(a.userRegisterCmd(), a.userListCmd())
	return cmd
}

func (a *app) userRegisterCmd() *cobra.Command {
	var nu service.NewUser
	var invite, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user with an invite code, or with an explicit --role",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			var u *models.User
			switch {
			case role != "":
				u, err = svc.CreateUser(nu, models.Role(role))
			case invite != "":
				u, err = svc.Register(nu, invite)
			default:
				return errors.Wrap(models.ErrInvalidInvite, "one of --invite or --role is required")
			}
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(u)
			}
			a.printf("registered %s (%s) id=%s\n", u.Username, u.Role, u.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&nu.Username, "username", "u", "", "username")
	flags.StringVarP(&nu.Password, "password", "p", "", "password")
	flags.StringVar(&nu.DisplayName, "display-name", "", "name shown on the leaderboard")
	flags.StringVar(&nu.Email, "email", "", "email address")
	flags.StringVar(&invite, "invite", "", "invite code deciding the role")
	flags.StringVar(&role, "role", "", "operator or worker, bypassing invite codes")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	cmd.MarkFlagsMutuallyExclusive("invite", "role")
	return cmd
}

func (a *app) userListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			svc, err := a.open(false)
			if err != nil {
				return err
			}
			users, err := svc.ListUsers(models.Role(role))
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				active := "yes"
				if !u.IsActive {
					active = "no"
				}
				rows = append(rows, []string{u.ID, u.Username, string(u.Role), u.DisplayName, active})
			}
			return a.printTable(users, []string{"ID", "USERNAME", "ROLE", "DISPLAY NAME", "ACTIVE"}, rows)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only users with this role")
	return cmd
}
