package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/raamul-storefront/internal/auth"
	"github.com/angelmondragon/raamul-storefront/pkg/apiclient"
)

func loginCmd(a *app) *cobra.Command {
	var req auth.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.auth.Login(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Username, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signupCmd(a *app) *cobra.Command {
	var req auth.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			user, err := a.auth.Signup(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s. Check %s for a verification link.\n", user.Username, user.Email)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Username, "username", "", "username")
	flags.StringVar(&req.Email, "email", "", "email address")
	flags.StringVar(&req.Phone, "phone", "", "M-Pesa phone number")
	flags.StringVar(&req.Location, "location", "", "delivery location")
	flags.StringVar(&req.Password, "password", "", "password, at least 6 characters")
	flags.StringVar(&req.ConfirmPassword, "confirm-password", "", "password again; defaults to --password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			user, err := a.requireUser()
			if err != nil {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			verified := a.session.EmailVerified()
			if status, err := a.auth.VerificationStatus(cmd.Context()); err == nil {
				verified = status
			} else if !apiclient.IsTransport(err) {
				return err
			}

			tw := newTable(out)
			fmt.Fprintf(tw, "Username\t%s\n", user.Username)
			fmt.Fprintf(tw, "Email\t%s\n", user.Email)
			fmt.Fprintf(tw, "Phone\t%s\n", orDash(user.Phone))
			fmt.Fprintf(tw, "Location\t%s\n", orDash(user.Location))
			fmt.Fprintf(tw, "Role\t%s\n", user.Role)
			fmt.Fprintf(tw, "Email verified\t%t\n", verified)
			return tw.Flush()
		},
	}
}

func accountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Password and email verification",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printMessage(cmd, func() (*auth.MessageResponse, error) {
				return a.auth.ForgotPassword(cmd.Context(), email)
			})
		},
	}
	forgot.Flags().StringVar(&email, "email", "", "account email")
	_ = forgot.MarkFlagRequired("email")

	var token, newPassword string
	reset := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.auth.VerifyResetToken(cmd.Context(), token); err != nil {
				return err
			}
			return printMessage(cmd, func() (*auth.MessageResponse, error) {
				return a.auth.ResetPassword(cmd.Context(), token, newPassword)
			})
		},
	}
	reset.Flags().StringVar(&token, "token", "", "reset token from the email")
	reset.Flags().StringVar(&newPassword, "new-password", "", "new password")
	_ = reset.MarkFlagRequired("token")
	_ = reset.MarkFlagRequired("new-password")

	var current, next string
	change := &cobra.Command{
		Use:   "change-password",
		Short: "Change the signed-in account's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			return printMessage(cmd, func() (*auth.MessageResponse, error) {
				return a.auth.ChangePassword(cmd.Context(), current, next)
			})
		},
	}
	change.Flags().StringVar(&current, "current", "", "current password")
	change.Flags().StringVar(&next, "new", "", "new password")
	_ = change.MarkFlagRequired("current")
	_ = change.MarkFlagRequired("new")

	verify := &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printMessage(cmd, func() (*auth.MessageResponse, error) {
				return a.auth.VerifyEmail(cmd.Context(), args[0])
			})
		},
	}

	resend := &cobra.Command{
		Use:   "resend-verification",
		Short: "Send the verification email again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireUser(); err != nil {
				return err
			}
			return printMessage(cmd, func() (*auth.MessageResponse, error) {
				return a.auth.ResendVerification(cmd.Context())
			})
		},
	}

	cmd.AddCommand(forgot, reset, change, verify, resend)
	return cmd
}

func printMessage(cmd *cobra.Command, call func() (*auth.MessageResponse, error)) error {
	resp, err := call()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}
