package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"groupman/internal/config"
)

const tokenIssuer = "groupman"

func newTokenCmd(g *globals) *cobra.Command {
	var (
		user  string
		roles []string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 bearer token for local development",
		Long: "Mint a bearer token signed with JWT_SECRET. The name and roles are written to the\n" +
			"claims the server reads (AUTH_NAME_CLAIM, AUTH_ROLES_CLAIM).",
		Example: "  groupman token --user molly --roles ROLE_USER,ROLE_ADMIN",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			tok, err := mintToken(cfg.Auth, user, roles, ttl, time.Now())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "principal name (required)")
	cmd.Flags().StringSliceVarP(&roles, "roles", "r", nil, "comma-separated roles")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// mintToken signs a token carrying user and roles under the configured claim
// names.
func mintToken(auth config.AuthConfig, user string, roles []string, ttl time.Duration, now time.Time) (string, error) {
	if auth.OIDCEnabled() {
		return "", errors.New("token: the server validates tokens from AUTH_ISSUER_URL; mint them with the identity provider")
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return "", errors.New("token: --user must not be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token: --ttl must be positive, got %s", ttl)
	}

	claims := jwt.MapClaims{
		"sub": user,
		"iss": tokenIssuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if auth.NameClaim != "" {
		claims[auth.NameClaim] = user
	}
	if auth.RolesClaim != "" {
		claims[auth.RolesClaim] = roles
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(auth.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
