package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage quarry configuration",
	Long: `View and configure the embedding provider, LLM provider, and other
options. Use subcommands to set individual keys or run the interactive
wizard.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure providers step by step.`,
	RunE:  runConfigWizard,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a dotted configuration key, for example:

  quarry config set embedding.provider ollama
  quarry config set embedding.model nomic-embed-text
  quarry config set llm.provider openai`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configured providers",
	Long:  `Pings the configured embedding and LLM providers and reports status.`,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configWizardCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

// allProviders lists the selectable AI providers in wizard order.
func allProviders() []domain.AIProvider {
	return []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI}
}

// defaultModels returns the suggested model per provider for a concern.
func defaultModels(concern string) map[domain.AIProvider]string {
	if concern == "llm" {
		return map[domain.AIProvider]string{
			domain.AIProviderOllama: "llama3.2",
			domain.AIProviderOpenAI: "gpt-4o-mini",
		}
	}
	return map[domain.AIProvider]string{
		domain.AIProviderOllama: "nomic-embed-text",
		domain.AIProviderOpenAI: "text-embedding-3-small",
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	emb := EmbeddingSettingsFromConfig(configStore)
	llmSettings := LLMSettingsFromConfig(configStore)

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderSettings(cmd, emb.Provider, emb.Model, emb.BaseURL, emb.APIKey, emb.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProviderSettings(cmd, llmSettings.Provider, llmSettings.Model, llmSettings.BaseURL, llmSettings.APIKey, llmSettings.IsConfigured())
	cmd.Println()

	if !emb.IsConfigured() {
		cmd.Println("Embedding is not configured; ingest and search are unavailable.")
		cmd.Println("Run 'quarry config wizard' to set it up.")
	} else if !llmSettings.IsConfigured() {
		cmd.Println("LLM is not configured; 'quarry ask' and LLM tag ranking are unavailable.")
	} else {
		cmd.Println("Configuration is complete.")
	}
	cmd.Printf("\nConfig file: %s\n", configStore.Path())
	return nil
}

func printProviderSettings(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Println("Quarry Setup Wizard")
	cmd.Println("===================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Println("Embeddings power ingestion and similarity search.")
	cmd.Println()
	if err := configureProvider(cmd, reader, "embedding"); err != nil {
		return err
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	cmd.Println("The LLM powers grounded answers, semantic chunking, and tag ranking.")
	cmd.Println()
	if err := configureProvider(cmd, reader, "llm"); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	cmd.Println("Restart quarry for the new providers to take effect.")
	return nil
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, concern string) error {
	providers := allProviders()
	cmd.Printf("Select %s provider\n", concern)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	provider := providers[idx-1]

	defaultModel := defaultModels(concern)[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var baseURL string
	if provider.IsLocal() {
		cmd.Print("Enter base URL [http://localhost:11434]: ")
		baseURL = readLine(reader)
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	for key, value := range map[string]any{
		concern + ".provider": provider.String(),
		concern + ".model":    model,
		concern + ".base_url": baseURL,
		concern + ".api_key":  apiKey,
	} {
		if err := configStore.Set(key, value); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	cmd.Print("Validating configuration... ")
	if err := validateConcern(concern); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		cmd.Println("Settings were saved; fix the provider and run 'quarry config check'.")
	} else {
		cmd.Println("OK")
	}

	cmd.Printf("%s provider configured: %s (%s)\n\n", concern, provider.Description(), model)
	return nil
}

func validateConcern(concern string) error {
	if concern == "llm" {
		if validateLLM == nil {
			return nil
		}
		settings := LLMSettingsFromConfig(configStore)
		return validateLLM(&settings)
	}
	if validateEmbedding == nil {
		return nil
	}
	settings := EmbeddingSettingsFromConfig(configStore)
	return validateEmbedding(&settings)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, coerceValue(raw)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	value, ok := configStore.Get(key)
	if !ok {
		return fmt.Errorf("key not set: %s", key)
	}
	if strings.HasSuffix(key, ".api_key") {
		if s, isStr := value.(string); isStr {
			value = maskAPIKey(s)
		}
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	failed := false

	cmd.Print("Embedding provider... ")
	if err := validateConcern("embedding"); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Print("LLM provider... ")
	if err := validateConcern("llm"); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

// EmbeddingSettingsFromConfig reads the embedding provider settings from
// the dotted config keys.
func EmbeddingSettingsFromConfig(store driven.ConfigStore) domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider: domain.AIProvider(store.GetString("embedding.provider")),
		Model:    store.GetString("embedding.model"),
		BaseURL:  store.GetString("embedding.base_url"),
		APIKey:   store.GetString("embedding.api_key"),
	}
}

// LLMSettingsFromConfig reads the LLM provider settings from the dotted
// config keys.
func LLMSettingsFromConfig(store driven.ConfigStore) domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(store.GetString("llm.provider")),
		Model:    store.GetString("llm.model"),
		BaseURL:  store.GetString("llm.base_url"),
		APIKey:   store.GetString("llm.api_key"),
	}
}

// coerceValue parses bools and numbers so the config file keeps native types.
func coerceValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if i, err := strconv.Atoi(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// maskAPIKey hides most of the key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
