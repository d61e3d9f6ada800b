package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igfetch/pkg/auth"
	"igfetch/pkg/ui"
)

var (
	loginSessionID string
	loginCSRFToken string
	loginUserAgent string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Instagram session",
	Long: `Manage the Instagram session igfetch uses for stories.

The session is stored in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Redis, when session_store.backend is redis
  - Environment variables (read-only)

Never share your session cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the session cookies of a logged-in browser",
	Long: `Store the sessionid and csrftoken cookies of a browser that is logged in
to Instagram. Values are read without echo unless given as flags.`,
	Example: `  # Interactive login
  igfetch auth login

  # Non-interactive
  igfetch auth login --session-id "$SID" --csrf-token "$CSRF"`,
	Args: cobra.NoArgs,
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Args:  cobra.NoArgs,
	Run:   runLogout,
}

// sessionShowCmd represents the auth show command
var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored session with values masked",
	Args:  cobra.NoArgs,
	Run:   runSessionShow,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(sessionShowCmd)

	loginCmd.Flags().StringVar(&loginSessionID, "session-id", "", "sessionid cookie value")
	loginCmd.Flags().StringVar(&loginCSRFToken, "csrf-token", "", "csrftoken cookie value")
	loginCmd.Flags().StringVar(&loginUserAgent, "user-agent", "", "User-Agent of the browser the cookies came from")
}

// openSessions opens the session store named by the configuration
func openSessions() *auth.Manager {
	cfg, log, err := loadConfig(nil)
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to load configuration", err)
		os.Exit(1)
	}

	manager, err := auth.NewManager(cfg, log)
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to open session store", err)
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := openSessions()
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	sessionID := loginSessionID
	csrfToken := loginCSRFToken

	if sessionID == "" || csrfToken == "" {
		auth.WriteQuickGuide(os.Stdout)
		fmt.Println()
	}

	for sessionID == "" {
		fmt.Print("sessionid cookie value: ")
		input, err := readSecret(reader)
		if err != nil {
			ui.PrintError(os.Stderr, "Failed to read session ID", err)
			os.Exit(1)
		}
		if strings.EqualFold(input, "help") {
			auth.WriteCookieGuide(os.Stdout)
			continue
		}
		if err := checkSessionID(input); err != nil {
			ui.PrintWarning(os.Stdout, err.Error())
			continue
		}
		sessionID = input
	}

	for csrfToken == "" {
		fmt.Print("csrftoken cookie value: ")
		input, err := readSecret(reader)
		if err != nil {
			ui.PrintError(os.Stderr, "Failed to read CSRF token", err)
			os.Exit(1)
		}
		if strings.EqualFold(input, "help") {
			auth.WriteCookieGuide(os.Stdout)
			continue
		}
		if err := checkCSRFToken(input); err != nil {
			ui.PrintWarning(os.Stdout, err.Error())
			continue
		}
		csrfToken = input
	}

	if existing, _ := manager.Get(ctx, auth.ServiceInstagram); existing != nil {
		ui.PrintWarning(os.Stdout, "Replacing the stored session")
	}

	session, err := manager.Login(ctx, sessionID, csrfToken, loginUserAgent)
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to store session", err)
		os.Exit(1)
	}

	ui.PrintSuccess(os.Stdout, "Session stored")
	printSession(session, manager)
}

// checkSessionID rejects values that cannot be a sessionid cookie
func checkSessionID(v string) error {
	if len(v) < 20 || !strings.Contains(v, "%3A") && !strings.Contains(v, ":") {
		return errors.New("that does not look like a sessionid; it is long and contains %3A")
	}
	return nil
}

// checkCSRFToken rejects values that cannot be a csrftoken cookie
func checkCSRFToken(v string) error {
	if len(v) < 20 || len(v) > 64 {
		return errors.New("that does not look like a csrftoken; it is about 32 characters")
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := openSessions()

	err := manager.Delete(context.Background(), auth.ServiceInstagram)
	if errors.Is(err, auth.ErrSessionNotFound) {
		ui.PrintWarning(os.Stdout, "No stored session")
		return
	}
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to remove session", err)
		os.Exit(1)
	}
	ui.PrintSuccess(os.Stdout, "Session removed")
}

func runSessionShow(cmd *cobra.Command, args []string) {
	manager := openSessions()

	session, err := manager.Get(context.Background(), auth.ServiceInstagram)
	if err != nil {
		ui.PrintError(os.Stderr, "Failed to read session", err)
		os.Exit(1)
	}
	if session == nil {
		ui.PrintWarning(os.Stdout, "No stored session. Run 'igfetch auth login'.")
		return
	}
	printSession(session, manager)
}

func printSession(session *auth.Session, manager *auth.Manager) {
	masked := auth.SanitizeSession(session)

	ui.PrintInfo(os.Stdout, "Backends", strings.Join(manager.Backends(), ", "))
	names := make([]string, 0, len(masked.Cookies))
	for name := range masked.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ui.PrintInfo(os.Stdout, name, masked.Cookies[name])
	}
	if masked.Claim != "" {
		ui.PrintInfo(os.Stdout, "Claim", masked.Claim)
	}
	if masked.UserAgent != "" {
		ui.PrintInfo(os.Stdout, "User-Agent", masked.UserAgent)
	}
	if !session.LastModified.IsZero() {
		ui.PrintInfo(os.Stdout, "Updated", manager.Age(session).Round(time.Second).String()+" ago")
	}
}

// readSecret reads a value from stdin without echoing when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
