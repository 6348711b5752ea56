package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión y guarda el token localmente",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := rt.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sesión iniciada como %s (%s)\n", sess.DisplayName, sess.Role.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "correo del usuario (obligatorio)")
	cmd.Flags().StringVar(&password, "password", "", "contraseña (obligatoria)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Cierra la sesión guardada",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A rejected or expired session is already gone locally.
			_, _ = rt.session.Restore(cmd.Context())
			if err := rt.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sesión cerrada")
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Muestra el usuario de la sesión guardada",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Nombre:  %s\n", sess.DisplayName)
			fmt.Fprintf(out, "Email:   %s\n", sess.Email)
			fmt.Fprintf(out, "Rol:     %s\n", sess.Role.Label())
			fmt.Fprintf(out, "Expira:  %s\n", sess.ExpiresAt.Local().Format("02/01/2006 15:04"))
			return nil
		},
	}
}
