package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/pkg/auth"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
)

// loginTimeout bounds how long `auth login` waits for the browser.
const loginTimeout = 5 * time.Minute

// authCommand creates the auth command with subcommands.
func (c *CLI) authCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Miro session",
		Long: `Sign in to Miro and inspect the stored session.

The token is stored in ~/.config/boardsync/tokens/ (storage.token_dir) and
refreshed automatically. MIRO_ACCESS_TOKEN bypasses the stored session.`,
	}

	cmd.AddCommand(c.authLoginCommand())
	cmd.AddCommand(c.authLogoutCommand())
	cmd.AddCommand(c.authStatusCommand())

	return cmd
}

func (c *CLI) authLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Miro in the browser",
		Long: `Start the Miro authorization code flow.

A local callback server listens on the configured redirect URL
(miro.redirect_url, default http://localhost:8080/auth/callback), which must
be registered with the Miro app.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogin(cmd.Context())
		},
	}
}

func (c *CLI) authLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Miro token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.tokenStore()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), tokenKey); err != nil {
				return fmt.Errorf("delete token: %w", err)
			}
			printSuccess("Logged out")
			return nil
		},
	}
}

func (c *CLI) authStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed-in Miro user and team",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			client, err := c.miroClient(ctx)
			if err != nil {
				return err
			}

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()
			info, err := client.TokenInfo(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("Miro Session")
			printKeyValue("User", fmt.Sprintf("%s (%s)", info.User.Name, info.User.ID))
			printKeyValue("Team", fmt.Sprintf("%s (%s)", info.Team.Name, info.Team.ID))
			if c.Config.Miro.AccessToken != "" {
				printKeyValue("Token", "MIRO_ACCESS_TOKEN")
				return nil
			}
			if store, err := c.tokenStore(); err == nil {
				if tok, err := store.Get(ctx, tokenKey); err == nil {
					printKeyValue("Updated", tok.UpdatedAt.Format("Jan 2, 2006 15:04"))
					printKeyValue("File", store.Path(tokenKey))
				}
			}
			return nil
		},
	}
}

// =============================================================================
// Authorization Code Flow
// =============================================================================

func (c *CLI) runLogin(ctx context.Context) error {
	oauth := c.oauth()
	if !oauth.Configured() {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "set MIRO_CLIENT_ID and MIRO_CLIENT_SECRET to sign in")
	}
	store, err := c.tokenStore()
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	redirect, err := url.Parse(c.Config.RedirectURL())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "redirect url")
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	states := auth.NewMemoryStateStore()
	state, err := states.Generate(ctx, loginTimeout)
	if err != nil {
		return err
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen for the callback on %s: %w", redirect.Host, err)
	}
	result := make(chan error, 1)
	srv := &http.Server{
		Handler:           loginCallback(redirect.Path, oauth, states, store, result),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := oauth.AuthCodeURL(state)
	printNewline()
	fmt.Println(StyleTitle.Render("Miro Authorization"))
	printNewline()
	printKeyValue("URL", StyleLink.Render(authURL))
	printNewline()
	if err := openBrowser(authURL); err != nil {
		printDetail("Copy the URL above and paste it in your browser")
	} else {
		printDetail("Opening browser...")
	}
	printInline("Waiting for authorization...")

	select {
	case err = <-result:
	case <-ctx.Done():
		err = ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.New(apperrors.ErrCodeTimeout, "no authorization within %s", loginTimeout)
		}
	}
	fmt.Println()
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	tok, _ := store.Get(context.WithoutCancel(ctx), tokenKey)
	if tok != nil && tok.UserID != "" {
		printSuccess("Logged in as user %s", tok.UserID)
	} else {
		printSuccess("Logged in")
	}
	return nil
}

// loginCallback handles the redirect from Miro: it checks the state,
// exchanges the code and stores the token. The outcome is sent on result.
func loginCallback(path string, oauth *auth.OAuth, states auth.StateStore, store auth.TokenStore, result chan<- error) http.Handler {
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		err := completeLogin(r, oauth, states, store)
		if err != nil {
			http.Error(w, apperrors.UserMessage(err), apperrors.HTTPStatus(err))
		} else {
			fmt.Fprintln(w, "Signed in to Miro. You can close this window.")
		}
		select {
		case result <- err:
		default:
		}
	})
	return mux
}

func completeLogin(r *http.Request, oauth *auth.OAuth, states auth.StateStore, store auth.TokenStore) error {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return apperrors.New(apperrors.ErrCodeUnauthorized, "Miro denied access: %s", e)
	}
	if err := states.Validate(r.Context(), q.Get("state")); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeUnauthorized, err, "invalid state")
	}
	tok, err := oauth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		return err
	}
	stored := auth.NewToken(tokenKey, tok)
	stored.UpdatedAt = time.Now().UTC()
	return store.Set(r.Context(), stored)
}

func openBrowser(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "linux":
		cmd = exec.Command("xdg-open", rawURL)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", rawURL)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
