package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/atendeco/atende/internal/adapter/postgres"
	"github.com/atendeco/atende/internal/config"
	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/tenant"
	"github.com/atendeco/atende/internal/service"
)

// runAdmin dispatches admin subcommands. Tenant management lives here
// because the HTTP API requires an existing tenant key to authenticate.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "create-agent":
		return runAdminCreateAgent(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: atende admin <command> [options]

Commands:
  create-tenant    Create a tenant and register its API key
  list-tenants     List all tenants
  create-agent     Create a virtual agent for a tenant
  help             Show this help message

Examples:
  atende admin create-tenant --name "Acme Corp"
  atende admin create-tenant --name "Acme Corp" --api-key <key>
  atende admin list-tenants
  atende admin create-agent --tenant <id> --name suporte-n1 \
    --channels whatsapp,chat --actions create_ticket,send_notification
`)
}

type adminDeps struct {
	auth   *service.AuthService
	agents *service.AgentService
	close  func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	st := postgres.NewStore(pool)
	return &adminDeps{
		auth:   service.NewAuthService(st),
		agents: service.NewAgentService(st),
		close:  pool.Close,
	}, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	apiKey := fs.String("api-key", "", "API key (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	key := *apiKey
	if key == "" {
		var err error
		key, err = promptSecret("API key: ")
		if err != nil {
			return fmt.Errorf("read api key: %w", err)
		}
		confirm, err := promptSecret("Confirm API key: ")
		if err != nil {
			return fmt.Errorf("read api key: %w", err)
		}
		if key != confirm {
			return fmt.Errorf("api keys do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.close()

	ctx := context.Background()
	t, err := deps.auth.CreateTenant(ctx, &tenant.CreateRequest{
		Name:   *name,
		APIKey: key,
	})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s)\n", t.Name, t.ID)
	fmt.Fprintf(os.Stderr, "Clients authenticate with X-Tenant-ID: %s and X-API-Key: <the key>\n", t.ID)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.close()

	ctx := context.Background()
	tenants, err := deps.auth.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tACTIVE\tCREATED")
	for i := range tenants {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
			tenants[i].ID, tenants[i].Name, tenants[i].IsActive,
			tenants[i].CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runAdminCreateAgent(args []string) error {
	fs := flag.NewFlagSet("create-agent", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	name := fs.String("name", "", "agent name (required)")
	channels := fs.String("channels", "chat", "comma-separated channel types")
	actions := fs.String("actions", "", "comma-separated enabled actions (required)")
	greeting := fs.String("greeting", "", "greeting shown on first contact")
	language := fs.String("language", "pt", "agent language")
	priority := fs.Int("priority", 0, "selection priority (higher wins)")
	maxTurns := fs.Int("max-turns", 30, "turns before forced escalation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tenantID == "" {
		return fmt.Errorf("--tenant is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.close()

	a, err := deps.agents.Create(context.Background(), *tenantID, &agent.CreateRequest{
		Name: *name,
		Personality: agent.Personality{
			Language: *language,
			Greeting: *greeting,
		},
		Channels:       splitList(*channels),
		EnabledActions: splitList(*actions),
		ConversationConfig: agent.ConversationConfig{
			UseMenus:            true,
			MaxTurns:            *maxTurns,
			RequireConfirmation: true,
		},
		Priority: *priority,
	})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Agent created: %s (id=%s, channels=%s)\n",
		a.Name, a.ID, strings.Join(a.Channels, ","))
	return nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
