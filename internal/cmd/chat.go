package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ixra/ixra-api/internal/ailink/content"
	"github.com/ixra/ixra-api/internal/chat"
	"github.com/ixra/ixra-api/internal/chatclient"
)

var (
	chatURL      string
	chatClientID string
	chatMessage  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a running assistant over HTTP",
	Long: `Talk to the assistant served by "serve" at --url.

With --message a single question is sent and the answer printed. Otherwise
an interactive session starts; type /reset to clear the history and /quit
(or Ctrl+D) to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := chatclient.New(chatURL)
		client.ClientID = strings.TrimSpace(chatClientID)

		if msg := strings.TrimSpace(chatMessage); msg != "" {
			_, err := sendTurn(cmd, client, []chat.Turn{{Role: content.RoleUser, Content: msg}})
			return err
		}
		return chatREPL(cmd, client, os.Stdin)
	},
}

func chatREPL(cmd *cobra.Command, client *chatclient.Client, in io.Reader) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(in)
	var history []chat.Turn

	for {
		_, _ = fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			history = nil
			_, _ = fmt.Fprintln(out, "(history cleared)")
			continue
		}

		history = append(history, chat.Turn{Role: content.RoleUser, Content: line})
		reply, err := sendTurn(cmd, client, history)
		if err != nil {
			var limited *chatclient.RateLimitedError
			if errors.As(err, &limited) {
				// Keep the session open; the visitor may wait it out.
				history = history[:len(history)-1]
				continue
			}
			return err
		}
		history = append(history, chat.Turn{Role: content.RoleAssistant, Content: reply.Content})
	}
}

// sendTurn sends the conversation and prints the reply as it arrives.
func sendTurn(cmd *cobra.Command, client *chatclient.Client, turns []chat.Turn) (*chatclient.Reply, error) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, "ixra> ")

	reply, err := client.Send(cmd.Context(), turns, func(delta string) {
		_, _ = fmt.Fprint(out, delta)
	})
	if err != nil {
		var limited *chatclient.RateLimitedError
		if errors.As(err, &limited) {
			_, _ = fmt.Fprintf(out, "%s (retry in %s)\n", limited.Message, limited.RetryAfter)
			return nil, err
		}
		_, _ = fmt.Fprintln(out)
		return nil, err
	}

	_, _ = fmt.Fprintln(out)
	return reply, nil
}

func init() {
	chatCmd.Flags().StringVar(&chatURL, "url", "http://localhost:8080", "base URL of the running server")
	chatCmd.Flags().StringVar(&chatClientID, "client-id", "", "client identifier sent as X-Forwarded-For (quota key)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send one message and exit")
	rootCmd.AddCommand(chatCmd)
}
