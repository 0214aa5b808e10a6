package command

import (
	"errors"
	"fmt"
	"time"

	"homelibrary/cmd/cli/authentication"
	"homelibrary/cmd/cli/command/client"
	"homelibrary/internal/microservices/http-api/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// auth.go handles API token commands: login, logout, refresh, status.

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate against a Home Library API server. Tokens are kept in the OS keyring.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain API tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.LoginRequest
		req.Username, _ = cmd.Flags().GetString("username")
		req.Password, _ = cmd.Flags().GetString("password")

		response, err := client.NewHTTPClient(apiURL).Login(&req)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := authentication.StoreTokens(&authentication.StoredCredentials{
			APIURL:       apiURL,
			AccessToken:  response.AccessToken,
			RefreshToken: response.RefreshToken,
			Username:     response.Username,
			ExpiresAt:    time.Now().Add(time.Duration(response.ExpiresIn) * time.Second).Unix(),
		}); err != nil {
			return fmt.Errorf("store tokens: %w", err)
		}

		color.Green("✓ Logged in as %s", response.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored refresh token and forget both tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if errors.Is(err, authentication.ErrNotLoggedIn) {
			fmt.Println("Not logged in.")
			return nil
		}
		if err != nil {
			return err
		}

		// best effort, the server may be gone
		if _, err := client.NewHTTPClient(creds.APIURL).RevokeToken(&dto.RevokeTokenRequest{RefreshToken: creds.RefreshToken}); err != nil {
			color.Yellow("! could not revoke refresh token: %v", err)
		}
		if err := authentication.DeleteTokens(); err != nil {
			return err
		}
		color.Green("✓ Logged out.")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rotate the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err != nil {
			return err
		}
		if err := refreshTokens(creds); err != nil {
			return err
		}
		color.Green("✓ Tokens refreshed.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored login",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err != nil {
			return err
		}
		expires := time.Unix(creds.ExpiresAt, 0)
		fmt.Printf("User:   %s\n", creds.Username)
		fmt.Printf("Server: %s\n", creds.APIURL)
		if time.Now().After(expires) {
			color.Yellow("Access token expired at %s (refreshed on next use)", expires.Format(time.RFC3339))
		} else {
			fmt.Printf("Access token valid until %s\n", expires.Format(time.RFC3339))
		}
		return nil
	},
}

func refreshTokens(creds *authentication.StoredCredentials) error {
	response, err := client.NewHTTPClient(creds.APIURL).RefreshToken(&dto.RefreshTokenRequest{RefreshToken: creds.RefreshToken})
	if err != nil {
		return fmt.Errorf("refresh failed, log in again: %w", err)
	}
	creds.AccessToken = response.AccessToken
	creds.RefreshToken = response.RefreshToken
	creds.ExpiresAt = time.Now().Add(time.Duration(response.ExpiresIn) * time.Second).Unix()
	return authentication.StoreTokens(creds)
}

// GetAuthenticatedClient returns a client carrying a fresh access token,
// rotating the stored pair first when the access token has expired.
func GetAuthenticatedClient() (*client.HTTPClient, error) {
	creds, err := authentication.GetTokens()
	if err != nil {
		return nil, err
	}
	if time.Now().Add(10 * time.Second).After(time.Unix(creds.ExpiresAt, 0)) {
		if err := refreshTokens(creds); err != nil {
			return nil, err
		}
	}
	c := client.NewHTTPClient(creds.APIURL)
	c.SetToken(creds.AccessToken)
	return c, nil
}

func init() {
	authCmd.AddCommand(loginCmd, logoutCmd, refreshCmd, statusCmd)
	rootCmd.AddCommand(authCmd)

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
