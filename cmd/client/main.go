package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/gitgate/internal/backend"
	"github.com/gitgate/internal/config"
	"github.com/gitgate/internal/github"
	"github.com/gitgate/internal/logger"
	"github.com/gitgate/internal/session"
	"github.com/gitgate/internal/store"
)

// maxReposShown caps how many repositories the dashboard renders
const maxReposShown = 5

const usage = `Usage: gitgate-client <command>

Commands:
  login                 Print the GitHub authorization URL to open in a browser
  callback <url>        Complete sign-in with the redirect URL GitHub sent back
  status                Show the current session state
  repos                 Show the profile and first repositories via the proxy API
  logout                Clear the session and delete the stored token
`

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.Environment)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	st, err := store.Init(cfg.Client.DataPath)
	if err != nil {
		log.Fatalf("Failed to open client store: %v", err)
	}
	defer st.Close()

	api := backend.NewClient(cfg.Client.BackendURL)
	manager := session.NewManager(cfg, st, github.NewClient(cfg.GitHub), api, slog.Default())

	if err := manager.Resume(); err != nil {
		log.Fatalf("Failed to resume session: %v", err)
	}

	// Interrupt cancels in-flight exchange and fetches; a partially
	// established session is never kept
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], manager, api); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, command string, args []string, manager *session.Manager, api *backend.Client) error {
	switch command {
	case "login":
		url, err := manager.LoginURL()
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Println("Open this URL in a browser to sign in with GitHub:")
		fmt.Println()
		fmt.Println("  " + url)
		fmt.Println()
		fmt.Println("Then run: gitgate-client callback \"<redirect url>\"")
		return nil

	case "callback":
		if len(args) < 1 {
			return fmt.Errorf("callback requires the redirect URL GitHub sent back")
		}
		if err := manager.HandleCallback(ctx, args[0]); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		user := manager.User()
		fmt.Printf("Signed in as %s\n", displayName(user))
		if user.Email != "" {
			fmt.Printf("Email: %s\n", user.Email)
		}
		return nil

	case "status":
		fmt.Printf("Session: %s\n", manager.Status())
		if manager.Token() != "" && !manager.IsAuthenticated() {
			fmt.Println("A token is stored; it is verified on each proxied request.")
		}
		return nil

	case "repos":
		token := manager.Token()
		if token == "" {
			return fmt.Errorf("no token stored - run login first")
		}
		return showDashboard(ctx, api, token)

	case "logout":
		if err := manager.Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Logged out.")
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// showDashboard fetches the profile and repository list through the
// proxy endpoints concurrently and renders both once both complete
func showDashboard(ctx context.Context, api *backend.Client, token string) error {
	var profile *backend.ProfileResponse
	var repos []github.Repo

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = api.FetchProfile(ctx, token)
		return err
	})
	g.Go(func() error {
		var err error
		repos, err = api.FetchRepos(ctx, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to fetch user data: %w", err)
	}

	user := profile.User
	fmt.Printf("Welcome, %s\n", displayName(&user))
	if user.Email != "" {
		fmt.Printf("Email: %s\n", user.Email)
	}
	if user.Bio != "" {
		fmt.Printf("Bio: %s\n", user.Bio)
	}

	if len(repos) > maxReposShown {
		repos = repos[:maxReposShown]
	}

	fmt.Println()
	fmt.Println("Recent repositories:")
	for _, repo := range repos {
		fmt.Printf("  %s  %s\n", repo.Name, repo.HTMLURL)
		if repo.Description != "" {
			fmt.Printf("    %s\n", repo.Description)
		}
	}

	return nil
}

// displayName prefers the user's name and falls back to the login
func displayName(user *github.User) string {
	if user == nil {
		return ""
	}
	if user.Name != "" {
		return user.Name
	}
	return user.Login
}
