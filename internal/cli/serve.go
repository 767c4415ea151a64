package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/sadopc/preptrack/internal/server"
	"github.com/sadopc/preptrack/internal/store"
	"github.com/spf13/cobra"
)

func (o *options) openStore() (*store.Store, string, error) {
	path := o.cfg.DBPath
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve db path: %w", err)
		}
		path = p
	}
	s, err := store.New(path)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	return s, path, nil
}

// signingSecret prefers the configured secret and falls back to the one
// kept in the database.
func (o *options) signingSecret(s *store.Store) (string, error) {
	if o.cfg.JWTSecret != "" {
		return o.cfg.JWTSecret, nil
	}
	return s.JWTSecret()
}

func serveCmd(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference portal server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = o.cfg.ListenAddr
			}
			s, path, err := o.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			secret, err := o.signingSecret(s)
			if err != nil {
				return err
			}
			log.Printf("preptrack server on %s (database %s)", addr, path)
			return server.New(s, secret).Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from listen_addr)")
	return cmd
}

func tokenCmd(o *options) *cobra.Command {
	var (
		user string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the reference server",
		Long: `Mint a bearer token for the reference server.

The token is signed with jwt_secret, or with the secret stored in the
server database when none is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := o.cfg.JWTSecret
			if secret == "" {
				s, _, err := o.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				if secret, err = s.JWTSecret(); err != nil {
					return err
				}
			}
			token, err := server.MintToken(secret, user, role, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "preparer-1", "user id the token is issued to")
	cmd.Flags().StringVar(&role, "role", "preparer", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
