package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/stackapi/internal/auth"
	"github.com/fivetwenty-io/stackapi/internal/constants"
	apihttp "github.com/fivetwenty-io/stackapi/internal/http"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewOAuthCommand creates the oauth command group.
func NewOAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Authorize the CLI with Stack Exchange",
		Long: `Obtain an access token for the configured application.

Open the URL printed by "oauth url" in a browser, approve the application and
pass the code from the redirect to "oauth exchange". The token is saved as
access_token and sent with every following query.`,
	}

	cmd.AddCommand(newOAuthURLCommand())
	cmd.AddCommand(newOAuthExchangeCommand())

	return cmd
}

func newOAuthURLCommand() *cobra.Command {
	var (
		scope       string
		redirectURI string
		state       string
		implicit    bool
	)

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the authorization URL",
		Long:  "Print the URL that starts the explicit flow, or the implicit flow with --implicit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if redirectURI == "" {
				return constants.ErrRedirectURIRequired
			}

			if state == "" {
				state = uuid.NewString()
			}

			ctx := commandContext(cmd)

			api, err := newAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = api.Client().Close() }()

			begin := api.BeginExplicit
			if implicit {
				begin = api.BeginImplicit
			}

			url, err := begin(scope, redirectURI, state)
			if err != nil {
				return fmt.Errorf("%w: %w", constants.ErrNoClientID, err)
			}

			if done, err := writeStructured(cmd.OutOrStdout(), map[string]string{"url": url, "state": state}); done {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)

			return err
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "comma separated scopes, e.g. read_inbox,no_expiry")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "redirect URI registered for the application")
	cmd.Flags().StringVar(&state, "state", "", "opaque state echoed back in the redirect (default is random)")
	cmd.Flags().BoolVar(&implicit, "implicit", false, "use the implicit flow")

	return cmd
}

func newOAuthExchangeCommand() *cobra.Command {
	var (
		code        string
		redirectURI string
	)

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Exchange an authorization code for an access token",
		Long:  "Exchange the code returned to the redirect URI for an access token and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return constants.ErrCodeRequired
			}

			if redirectURI == "" {
				return constants.ErrRedirectURIRequired
			}

			clientID := viper.GetString("client_id")
			if clientID == "" {
				return constants.ErrNoClientID
			}

			secret, err := clientSecret(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			transport := apihttp.NewClient(
				apihttp.WithLogger(apiConfig().Logger),
				apihttp.WithTimeout(constants.DefaultHTTPTimeout),
			)

			flow := auth.NewFlow(auth.Config{
				ClientID:     clientID,
				ClientSecret: secret,
				Endpoints:    auth.Endpoints{TokenURL: viper.GetString("oauth_token_url")},
				HTTPClient:   transport.StandardClient(),
			})

			manager := auth.NewTokenManager(flow, NewConfigPersister(), viper.GetString("access_token"))

			token, err := manager.Exchange(commandContext(cmd), code, redirectURI)
			if err != nil {
				return fmt.Errorf("failed to exchange code: %w", err)
			}

			if done, err := writeStructured(cmd.OutOrStdout(), map[string]string{"access_token": token}); done {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Access token saved.")

			return err
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "authorization code from the redirect")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "redirect URI used to obtain the code")

	return cmd
}

// clientSecret returns the configured secret, prompting for it when stdin is a terminal.
func clientSecret(out io.Writer) (string, error) {
	if secret := viper.GetString("client_secret"); secret != "" {
		return secret, nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return "", constants.ErrNoClientSecret
	}

	_, err := fmt.Fprint(out, "Client secret: ")
	if err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	secretBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read client secret: %w", err)
	}

	_, _ = fmt.Fprintln(out)

	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", constants.ErrNoClientSecret
	}

	return secret, nil
}
