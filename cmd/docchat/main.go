// Command docchat is the terminal chat client for a docchat relay.
//
// Usage:
//
//	docchat [flags]
//
// Flags:
//
//	-relay string         Relay base URL (default "http://localhost:8080")
//	-document string      Document to ask about (see -list)
//	-conversation string  Conversation ID (random if omitted)
//	-transcript string    Write the conversation as JSON to this path on exit
//	-log-file string      Write logs to this file (default: no logs)
//	-authorization string Authorization header value (env DOCCHAT_AUTHORIZATION)
//	-list                 List the relay's documents and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/fwojciec/docchat"
	bt "github.com/fwojciec/docchat/bubbletea"
	dcjson "github.com/fwojciec/docchat/json"
	"github.com/fwojciec/docchat/relay"
	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		relayURL       = flag.String("relay", "http://localhost:8080", "Relay base URL")
		document       = flag.String("document", "", "Document to ask about")
		conversationID = flag.String("conversation", "", "Conversation ID (random if omitted)")
		transcript     = flag.String("transcript", "", "Write the conversation as JSON to this path on exit")
		logFile        = flag.String("log-file", "", "Write logs to this file")
		authorization  = flag.String("authorization", os.Getenv("DOCCHAT_AUTHORIZATION"), "Authorization header value")
		list           = flag.Bool("list", false, "List the relay's documents and exit")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []relay.Option
	if *authorization != "" {
		opts = append(opts, relay.WithAuthorization(*authorization))
	}
	client := relay.New(*relayURL, opts...)

	if *list {
		return listDocuments(ctx, client, os.Stdout)
	}

	// The terminal belongs to the TUI, so logs only ever go to a file.
	logger := slog.New(slog.DiscardHandler)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	id := *conversationID
	if id == "" {
		id = uuid.NewString()
	}
	asm := docchat.NewAssembler(docchat.NewConversation(id))
	chat := logSessions(bt.ChatRunner(docchat.NewChat(client)), logger)

	m := bt.New(chat, asm, docchat.DefaultTheme(), bt.WithDocument(*document))
	if err := bt.Run(ctx, m); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	// Run has stopped any running answer, so the conversation is ours now.
	if *transcript != "" && asm.Conversation().Len() > 0 {
		if err := dcjson.SaveTranscript(*transcript, asm.Conversation(), *document); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Transcript saved to %s\n", *transcript)
	}
	return nil
}

// logSessions logs the outcome of every session run.
func logSessions(run bt.ChatFunc, logger *slog.Logger) bt.ChatFunc {
	return func(ctx context.Context, asm *docchat.Assembler, req docchat.Request, onEvent func(docchat.Event)) error {
		start := time.Now()
		logger.Debug("session started", "conversation", req.ConversationID, "document", req.DocumentID)
		err := run(ctx, asm, req, onEvent)
		attrs := []any{
			"conversation", req.ConversationID,
			"outcome", string(docchat.OutcomeOf(err)),
			"fragments", asm.Fragments(),
			"duration", time.Since(start),
		}
		if err != nil {
			logger.Warn("session ended", append(attrs, "error", err)...)
		} else {
			logger.Info("session ended", attrs...)
		}
		return err
	}
}

// listDocuments prints the relay's documents as a table.
func listDocuments(ctx context.Context, client *relay.Client, w io.Writer) error {
	docs, err := client.Documents(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tMODIFIED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", d.ID, d.Size, d.ModTime.Format(time.DateTime))
	}
	return tw.Flush()
}
