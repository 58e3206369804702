package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/innovaplus/innova/internal/config"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time configuration",
		Long:  "Configure the completion provider, API keys, reply language and image service.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				cfg = config.Default()
			}

			fmt.Println("Welcome to InnovA+! Let's configure your assistant.")
			fmt.Println()

			// Step 1: completion provider.
			fmt.Println("Which model provider should answer your messages?")
			fmt.Println("  [1] Gemini (Google)")
			fmt.Println("  [2] Claude (Anthropic)")
			fmt.Println("  [3] OpenAI")
			fmt.Println("  [4] Ollama (local)")
			fmt.Print("> ")

			switch strings.TrimSpace(readLineBuf(reader)) {
			case "2":
				cfg.Provider = "claude"
				if key := readSecret(reader, "Anthropic API key (Enter to use ANTHROPIC_API_KEY): "); key != "" {
					cfg.Keys.Anthropic = key
				}
			case "3":
				cfg.Provider = "openai"
				if key := readSecret(reader, "OpenAI API key (Enter to use OPENAI_API_KEY): "); key != "" {
					cfg.Keys.OpenAI = key
				}
			case "4":
				cfg.Provider = "ollama"
				fmt.Printf("Ollama host (Enter for %s): ", cfg.Ollama.Host)
				if host := readLineBuf(reader); host != "" {
					cfg.Ollama.Host = host
				}
				fmt.Print("Ollama completion model (e.g. llama3.1): ")
				if model := readLineBuf(reader); model != "" {
					cfg.Ollama.CompletionModel = model
				}
			default:
				cfg.Provider = "gemini"
				if key := readSecret(reader, "Gemini API key (Enter to use GEMINI_API_KEY): "); key != "" {
					cfg.Keys.Gemini = key
				}
			}
			fmt.Println()

			// Step 2: reply language.
			fmt.Println("Reply language?")
			fmt.Println("  [1] Español")
			fmt.Println("  [2] English")
			fmt.Print("> ")
			if strings.TrimSpace(readLineBuf(reader)) == "2" {
				cfg.Language = "en"
			} else {
				cfg.Language = "es"
			}
			fmt.Println()

			// Step 3: image service.
			fmt.Println("Images are generated with:")
			fmt.Println("  [1] Pollinations (free, no key)")
			fmt.Println("  [2] OpenAI DALL-E 3")
			fmt.Print("> ")
			if strings.TrimSpace(readLineBuf(reader)) == "2" {
				cfg.Image.Provider = "openai"
				if cfg.Keys.OpenAI == "" {
					cfg.Keys.OpenAI = readSecret(reader, "OpenAI API key: ")
				}
			} else {
				cfg.Image.Provider = "pollinations"
			}
			fmt.Println()

			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Printf("Configuration saved to %s\n", path)
			fmt.Println("Run `innova chat` to get started.")
			return nil
		},
	}
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(r *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	if !stdinIsTerminal() {
		return readLineBuf(r)
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// readLineBuf reads a trimmed line from a bufio.Reader.
func readLineBuf(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
