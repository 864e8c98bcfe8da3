package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/prismtools/prism/internal/auth"
	"github.com/prismtools/prism/internal/config"
	"github.com/prismtools/prism/internal/logging"
	"github.com/prismtools/prism/internal/service"
	"github.com/prismtools/prism/internal/transport"
	"github.com/prismtools/prism/internal/tui"
	"github.com/prismtools/prism/pkg/prism"
)

// tenantFlags holds the connection-related flag values shared by every
// command that talks to the service.
type tenantFlags struct {
	baseURL      string
	tenant       string
	clientID     string
	clientSecret string
	refreshToken string
	version      string
}

// registerTenantFlags adds the shared connection flags to a command.
func registerTenantFlags(cmd *cobra.Command, flags *tenantFlags) {
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "Tenant base URL (overrides prism.yaml / PRISM_BASE_URL)")
	cmd.Flags().StringVar(&flags.tenant, "tenant", "", "Tenant name")
	cmd.Flags().StringVar(&flags.clientID, "client-id", "", "API client id")
	cmd.Flags().StringVar(&flags.clientSecret, "client-secret", "", "API client secret")
	cmd.Flags().StringVar(&flags.refreshToken, "refresh-token", "", "Refresh token")
	cmd.Flags().StringVar(&flags.version, "api-version", "", "API version (default v3)")
}

// services bundles the wired service layer for one command invocation.
type services struct {
	cfg       prism.ClientConfig
	logger    prism.Logger
	endpoints prism.Endpoints

	tables         *service.Tables
	buckets        *service.Buckets
	stager         *service.Stager
	dataChanges    *service.DataChanges
	fileContainers *service.FileContainers
	dataSources    *service.DataSources
}

// resolveTenantConfig merges flags, environment and prism.yaml into a
// validated client configuration. Precedence: flag > env > yaml. Missing
// secrets are prompted for without echo when a human is at the terminal.
func resolveTenantConfig(flags tenantFlags) (prism.ClientConfig, error) {
	_ = godotenv.Load()

	tenant := config.TenantConfig{}
	if projectCfg, err := config.Load("."); err == nil {
		tenant = projectCfg.Connection
	} else if !errors.Is(err, config.ErrConfigNotFound) {
		return prism.ClientConfig{}, fmt.Errorf("loading %s: %w", config.ConfigFileName, err)
	}

	overlay := func(dst *string, flag string) {
		if flag != "" {
			*dst = flag
		}
	}
	overlay(&tenant.BaseURL, flags.baseURL)
	overlay(&tenant.Tenant, flags.tenant)
	overlay(&tenant.ClientID, flags.clientID)
	overlay(&tenant.ClientSecret, flags.clientSecret)
	overlay(&tenant.RefreshToken, flags.refreshToken)
	overlay(&tenant.Version, flags.version)

	tenant.ApplyEnv()

	if tui.IsInteractive() {
		if tenant.ClientSecret == "" {
			tenant.ClientSecret = promptSecret("Client secret: ")
		}
		if tenant.RefreshToken == "" {
			tenant.RefreshToken = promptSecret("Refresh token: ")
		}
	}

	cfg := prism.ClientConfig{
		BaseURL:      tenant.BaseURL,
		Tenant:       tenant.Tenant,
		ClientID:     tenant.ClientID,
		ClientSecret: tenant.ClientSecret,
		RefreshToken: tenant.RefreshToken,
		Version:      tenant.Version,
	}
	if err := cfg.Validate(); err != nil {
		return prism.ClientConfig{}, err
	}
	return cfg, nil
}

// promptSecret reads a value from the terminal without echoing it.
func promptSecret(label string) string {
	fmt.Fprint(os.Stderr, label)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(value)
}

// newServices builds the full service stack for a command.
func newServices(cmd *cobra.Command, flags tenantFlags) (*services, error) {
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	cfg, err := resolveTenantConfig(flags)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose

	endpoints := prism.NewEndpoints(cfg.BaseURL, cfg.Tenant, cfg.Version)
	tokens := auth.NewRefreshTokenSource(endpoints.Token, cfg.ClientID, cfg.ClientSecret, cfg.RefreshToken, logger)
	httpClient := transport.New(tokens, logger)

	tables := service.NewTables(httpClient, endpoints, logger)
	stager := service.NewStager(httpClient, endpoints, logger)

	return &services{
		cfg:            cfg,
		logger:         logger,
		endpoints:      endpoints,
		tables:         tables,
		buckets:        service.NewBuckets(httpClient, endpoints, tables, logger),
		stager:         stager,
		dataChanges:    service.NewDataChanges(httpClient, endpoints, logger),
		fileContainers: service.NewFileContainers(httpClient, endpoints, stager, logger),
		dataSources:    service.NewDataSources(httpClient, endpoints, logger),
	}, nil
}

// newLoader builds a load orchestrator with the given approver.
func (s *services) newLoader(approver prism.Approver) *service.Loader {
	return service.NewLoader(s.buckets, s.stager, approver, s.logger)
}

// printJSON writes v to stdout as indented JSON, the uniform output
// format of every command.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// readFile wraps os.ReadFile with a path-carrying error.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return data, nil
}

// printRawJSON re-indents a raw JSON document for display. Bodies that
// do not parse are printed verbatim.
func printRawJSON(body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, werr := os.Stdout.Write(append(body, '\n'))
		return werr
	}
	return printJSON(v)
}
