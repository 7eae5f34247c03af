// Package main provides the dining guide CLI entry point.
// The dining guide helps students pick foods, recommends a dining hall and chats about the choice.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/abiosoft/ishell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"diningguide/internal/logger"
	"diningguide/internal/server"
	"diningguide/internal/services"
	"diningguide/internal/shell"
	"diningguide/internal/version"
	"diningguide/pkg/diningtypes"
)

var (
	logLevel string
	logFile  string
	testMode bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dining",
	Short: "Dining hall guide - browse foods and chat about where to eat",
	Long: `Dining is a campus dining guide. Select the foods you like, get the dining hall
that serves most of them, and ask an AI assistant about your options.`,
	Run: runShell,
}

// shellCmd represents the shell command (explicit version of default behavior)
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive dining guide",
	Run:   runShell,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the food catalog and chat API over HTTP",
	RunE:  runServe,
}

var foodsCmd = &cobra.Command{
	Use:   "foods",
	Short: "Print the food catalog",
	RunE:  runFoods,
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage food images",
}

var imagesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate missing food images with the OpenAI Images API",
	RunE:  runImagesGenerate,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.Current().Detailed())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")
	flags.String("provider", "", "Completion provider (anthropic|openai|gemini|remote|mock)")
	flags.String("model", "", "Model name for the completion provider")
	flags.String("catalog", "", "Food catalog CSV path or dining API URL")
	flags.String("images-dir", "", "Directory holding food images")

	serveCmd.Flags().String("host", "", "Address to listen on [default: 0.0.0.0]")
	serveCmd.Flags().Int("port", 0, "Port to listen on [default: 8000]")

	for _, name := range []string{"log-level", "log-file", "test-mode", "provider", "model", "catalog", "images-dir"} {
		mustBind(name, flags.Lookup(name))
	}
	mustBind("host", serveCmd.Flags().Lookup("host"))
	mustBind("port", serveCmd.Flags().Lookup("port"))

	imagesCmd.AddCommand(imagesGenerateCmd)
	rootCmd.AddCommand(shellCmd, serveCmd, foodsCmd, imagesCmd, versionCmd)

	// Configure logger before any command execution
	cobra.OnInitialize(initConfig)
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", key, err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetConfigName("dining")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading dining.yaml: %v\n", err)
			os.Exit(1)
		}
	}

	if err := logger.Configure(viper.GetString("log-level"), viper.GetString("log-file"), viper.GetBool("test-mode")); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// configOverrides maps flag and dining.yaml values onto configuration keys.
func configOverrides() map[string]string {
	overrides := map[string]string{
		"DINING_PROVIDER":   viper.GetString("provider"),
		"DINING_MODEL":      viper.GetString("model"),
		"DINING_CATALOG":    viper.GetString("catalog"),
		"DINING_IMAGES_DIR": viper.GetString("images-dir"),
		"DINING_HOST":       viper.GetString("host"),
	}
	if port := viper.GetInt("port"); port > 0 {
		overrides["DINING_PORT"] = strconv.Itoa(port)
	}
	return overrides
}

func initializeServices() error {
	if err := shell.InitializeServices(viper.GetBool("test-mode"), configOverrides()); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	return nil
}

func runShell(_ *cobra.Command, _ []string) {
	logger.Info("Starting dining guide", "version", version.Current().Version)

	if err := initializeServices(); err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	sh := ishell.New()
	handler, err := shell.NewHandler(sh)
	if err != nil {
		logger.Fatal("Failed to create shell", "error", err)
	}
	handler.Attach(context.Background(), sh)

	sh.Println(version.Current().String())
	sh.Println("Type 'foods' to browse, 'toggle <n>' to select, 'chat' to talk about your picks and 'help' for more.")

	sh.Run()
}

func runServe(_ *cobra.Command, _ []string) error {
	if err := initializeServices(); err != nil {
		return err
	}

	config, err := services.LookupService[*services.ConfigurationService]("configuration")
	if err != nil {
		return err
	}
	catalog, err := services.LookupService[*services.CatalogService]("catalog")
	if err != nil {
		return err
	}
	chat, err := services.LookupService[*services.ChatSessionService]("chat_session")
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Host:      config.GetString("DINING_HOST", "0.0.0.0"),
		Port:      config.GetInt("DINING_PORT", 8000),
		ImagesDir: config.GetString("DINING_IMAGES_DIR", "images"),
	}, catalog, chat.Provider())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

type stdoutPrinter struct{}

func (stdoutPrinter) Print(val ...interface{}) { fmt.Print(val...) }

func (stdoutPrinter) Println(val ...interface{}) { fmt.Println(val...) }

func (stdoutPrinter) Printf(format string, val ...interface{}) { fmt.Printf(format, val...) }

func runFoods(_ *cobra.Command, _ []string) error {
	if err := initializeServices(); err != nil {
		return err
	}
	handler, err := shell.NewHandler(stdoutPrinter{})
	if err != nil {
		return err
	}
	return handler.Execute(context.Background(), "foods")
}

func runImagesGenerate(_ *cobra.Command, _ []string) error {
	if err := initializeServices(); err != nil {
		return err
	}

	catalog, err := services.LookupService[*services.CatalogService]("catalog")
	if err != nil {
		return err
	}
	images, err := services.LookupService[*services.ImageService]("image")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, err := catalog.Load(ctx)
	if err != nil {
		return err
	}
	if !images.CanGenerate() {
		logger.Warn("No OpenAI API key configured; missing images cannot be generated")
	}

	report, err := images.GenerateAll(ctx, items, func(i int, item diningtypes.FoodItem, outcome string, err error) {
		if err != nil {
			fmt.Printf("[%d/%d] %s: %s (%v)\n", i+1, len(items), item.Name, outcome, err)
			return
		}
		fmt.Printf("[%d/%d] %s: %s\n", i+1, len(items), item.Name, outcome)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d items: %d generated, %d skipped, %d errors (images in %s)\n",
		report.Total, report.Generated, report.Skipped, report.Errors, images.ImagesDir())
	return nil
}
