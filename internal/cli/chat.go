package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/innovaplus/innova/internal/config"
	"github.com/innovaplus/innova/internal/render"
)

const chatHelp = `Commands:
  /history   show the conversation kept for context
  /status    show capability toggles and memory counts
  /clear     forget the conversation and generated content
  /quit      leave the chat`

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Talk to InnovA+ in a line-editing REPL. Each message gets a base reply plus
any capability results it calls for. Follow-ups that ask to change recent
content ("hazlo en azul", "add a dark mode") modify it in place.

` + chatHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := newTurnProgress()
			a, err := openApp(appOptions{withEngine: true, onProgress: progress.Report})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.watchConfig(ctx)

			line := liner.NewLiner()
			line.SetCtrlCAborts(true)
			historyFile := chatHistoryPath()
			if f, err := os.Open(historyFile); err == nil {
				_, _ = line.ReadHistory(f)
				f.Close()
			}
			defer func() {
				saveChatHistory(line, historyFile)
				line.Close()
			}()

			r := a.renderer()
			fmt.Println("InnovA+ ready. Type /help for commands.")
			for {
				input, err := line.Prompt("innova> ")
				if err != nil {
					// Ctrl+C (ErrPromptAborted) and Ctrl+D both end the chat.
					fmt.Println()
					return nil
				}
				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}
				line.AppendHistory(input)

				if strings.HasPrefix(input, "/") {
					if !chatCommand(a, r, input) {
						return nil
					}
					continue
				}

				progress.Start("thinking")
				reply, err := a.engine.Handle(ctx, input)
				progress.Stop()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					fmt.Fprintln(os.Stderr, "Error:", err)
					continue
				}
				fmt.Println(r.Reply(reply))
				fmt.Println()
			}
		},
	}
}

// chatCommand runs a slash command and reports whether the chat continues.
func chatCommand(a *app, r *render.Renderer, input string) bool {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return false
	case "/help":
		fmt.Println(chatHelp)
	case "/history":
		history := a.engine.History()
		if len(history) == 0 {
			fmt.Println("No conversation yet.")
			break
		}
		for _, m := range history {
			fmt.Printf("[%s] %s\n\n", m.Role, m.Content)
		}
	case "/status":
		printStatus(a.holder.Get(), a)
	case "/clear":
		if err := a.engine.ClearHistory(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			break
		}
		fmt.Println("History cleared. Capability preferences were kept.")
	default:
		fmt.Printf("Unknown command %q.\n%s\n", input, chatHelp)
	}
	return true
}

func chatHistoryPath() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func saveChatHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

