package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/aitl/aitl"
	"github.com/s0up4200/aitl/auth"
	"github.com/s0up4200/aitl/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  aitl.API

	// Global flags
	resourceGroup  string
	subscriptionID string
	tenantID       string
	clientID       string
	clientSecret   string
	outputFormat   string
	logLevel       string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aitl",
	Short: "A command line client for Azure Image Testing for Linux",
	Long: `aitl manages job templates and test jobs of the Azure Image Testing for Linux
service. Credentials are read from AZURE_* environment variables, a .env file,
the config file (./config.yaml or ~/.aitl) or flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// Execute runs the root command and exits with a code derived from the error kind.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	printError(rootCmd.ErrOrStderr(), err)
	return exitCode(err)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var aerr *aitl.Error
	if errors.As(err, &aerr) && aerr.Body != "" {
		logger.Debug().Str("op", aerr.Op).Str("body", aerr.Body).Msg("Error response body")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.aitl)")
	rootCmd.PersistentFlags().StringVarP(&resourceGroup, "resource-group", "g", "", "resource group of the AITL resources")
	rootCmd.PersistentFlags().StringVar(&subscriptionID, "subscription-id", "", "Azure subscription id")
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant-id", "", "Azure AD tenant id")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "service principal client id")
	rootCmd.PersistentFlags().StringVar(&clientSecret, "client-secret", "", "service principal client secret")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: json, yaml or table")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(listTemplatesCmd)
	rootCmd.AddCommand(getTemplateCmd)
	rootCmd.AddCommand(createTemplateCmd)
	rootCmd.AddCommand(listJobsCmd)
	rootCmd.AddCommand(getJobCmd)
	rootCmd.AddCommand(deleteJobCmd)
	rootCmd.AddCommand(createJobCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Flags win over file and environment
	flags := cmd.Flags()
	if flags.Changed("resource-group") {
		cfg.Azure.ResourceGroup = resourceGroup
	}
	if flags.Changed("subscription-id") {
		cfg.Azure.SubscriptionID = subscriptionID
	}
	if flags.Changed("tenant-id") {
		cfg.Azure.TenantID = tenantID
	}
	if flags.Changed("client-id") {
		cfg.Azure.ClientID = clientID
	}
	if flags.Changed("client-secret") {
		cfg.Azure.ClientSecret = clientSecret
	}
	if flags.Changed("output") {
		cfg.Output.Format = strings.ToLower(outputFormat)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.ToLower(logLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = setupLogger(cfg.Logging)
	return nil
}

// connect acquires credentials and creates the API client
func connect(cmd *cobra.Command, args []string) error {
	if cfg.Azure.SubscriptionID == "" || cfg.Azure.ResourceGroup == "" {
		return aitl.NewValidationError("config", aitl.ErrMissingScope)
	}

	provider := auth.NewProvider(auth.Config{
		AccessToken:   cfg.Azure.AccessToken,
		TenantID:      cfg.Azure.TenantID,
		ClientID:      cfg.Azure.ClientID,
		ClientSecret:  cfg.Azure.ClientSecret,
		AuthorityHost: cfg.Azure.AuthorityHost,
	}, nil, logger)

	creds, err := provider.Credentials(cmd.Context())
	if err != nil {
		return err
	}

	scope := aitl.Scope{
		SubscriptionID: cfg.Azure.SubscriptionID,
		ResourceGroup:  cfg.Azure.ResourceGroup,
		APIVersion:     cfg.Azure.APIVersion,
	}

	c, err := aitl.NewClient(cfg.Azure.Endpoint, creds, scope, logger,
		aitl.WithTimeout(cfg.Transport.Timeout),
		aitl.WithMaxAttempts(cfg.Transport.MaxAttempts),
		aitl.WithRetryWait(cfg.Transport.RetryWaitMin, cfg.Transport.RetryWaitMax),
		aitl.WithRateLimit(cfg.Transport.RequestsPerSecond),
		aitl.WithMaxPages(cfg.Transport.MaxPages),
		aitl.WithUserAgent("aitl-cli/"+version),
	)
	if err != nil {
		return fmt.Errorf("failed to create AITL client: %w", err)
	}
	client = c

	logger.Debug().
		Str("endpoint", cfg.Azure.Endpoint).
		Str("resource_group", scope.ResourceGroup).
		Msg("Client ready")
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.WarnLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Colour only when a terminal is attached
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
