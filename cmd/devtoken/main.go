// Command devtoken mints a signed access token for calling a locally running
// server.  It reads JWT_SECRET and PROFILE_ROLE the same way the server does.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/prisoner-profile-details/internal/utils"
)

var (
	subject string
	roles   string
	ttlMin  int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "devtoken",
	Short: "Mint a bearer token for the profile details API",
	Long: `devtoken signs an HS256 access token with JWT_SECRET (read from the
environment or a .env file) for calling a local server.

Example:
  devtoken --sub SYNC_USER
  devtoken --sub SYNC_USER --roles ROLE_A,ROLE_B --ttl 15`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
	RunE: runMint,
}

func init() {
	rootCmd.Flags().StringVar(&subject, "sub", "DEV_USER", "token subject; recorded as the author of writes")
	rootCmd.Flags().StringVar(&roles, "roles", "", "comma separated roles (default: PROFILE_ROLE or the synchronisation role)")
	rootCmd.Flags().IntVar(&ttlMin, "ttl", 60, "lifetime in minutes")
}

func runMint(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	r := roles
	if r == "" {
		r = os.Getenv("PROFILE_ROLE")
	}
	if r == "" {
		r = "ROLE_NOMIS_PRISONER_API__SYNCHRONISATION__RW"
	}

	tok, err := utils.NewAccessToken(secret, subject, strings.Split(r, ","), ttlMin)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	fmt.Println(tok.Token)
	return nil
}
