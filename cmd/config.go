package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lmbridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the chat bridge configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Initialize configuration by prompting for runtime details.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	color.Blue("LM Bridge Configuration Setup")
	color.Yellow("Follow the prompts to configure the model runtime.")

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("\nOllama Base URL (blank for http://127.0.0.1:11434): ")
	baseURL, _ := reader.ReadString('\n')
	baseURL = strings.TrimSpace(baseURL)

	fmt.Print("Default Model: ")
	model, _ := reader.ReadString('\n')
	model = strings.TrimSpace(model)

	fmt.Print("Fallback Model (optional): ")
	fallback, _ := reader.ReadString('\n')
	fallback = strings.TrimSpace(fallback)

	fmt.Printf("System Prompt Format (%s): ", strings.Join(config.ValidSystemPromptFormats, ", "))
	format, _ := reader.ReadString('\n')
	format = strings.TrimSpace(format)

	cfg := &config.Config{
		Host:          config.DefaultHost,
		Port:          config.DefaultPort,
		OllamaBaseURL: baseURL,
		DefaultModel:  model,
		FallbackModel: fallback,
		SystemPrompt: config.SystemPromptConfig{
			Format: format,
		},
	}

	if err := cfgMgr.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved successfully to: %s", cfgMgr.GetPath())
	color.Cyan("You can now start the bridge with: %s start", AppName)

	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run '%s config init' to create one.", AppName)
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-15s: %s\n", "Ollama", cfg.OllamaBaseURL)
	fmt.Printf("  %-15s: %s\n", "Default Model", cfg.DefaultModel)
	fmt.Printf("  %-15s: %s\n", "Fallback Model", cfg.FallbackModel)
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())

	fmt.Println("\nSystem Prompt:")
	fmt.Printf("  %-15s: %s\n", "Format", cfg.SystemPrompt.Format)
	fmt.Printf("  %-15s: %v\n", "Enabled", cfg.SystemPrompt.IsEnabled())

	if cfg.SystemPrompt.Default != "" {
		fmt.Printf("  %-15s: %s\n", "Default Text", cfg.SystemPrompt.Default)
	}

	fmt.Println("\nRetry:")
	fmt.Printf("  %-15s: %d\n", "Max Retries", cfg.Retry.MaxRetries)
	fmt.Printf("  %-15s: %dms\n", "Delay", cfg.Retry.DelayMS)

	if cfg.ToolProvider.CatalogPath != "" {
		fmt.Println("\nTool Provider:")
		fmt.Printf("  %-15s: %s\n", "Catalog Path", cfg.ToolProvider.CatalogPath)
	}

	return nil
}
