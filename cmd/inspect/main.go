package main

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// inspect prints one page of a target's journal with the outcome of every recipient.
//
//	go run ./cmd/inspect -backend badger -path ./data/badger -target group:Family
func main() {
	backend := flag.String("backend", repositories.BackendBadger, "Journal backend: badger or sqlite")
	path := flag.String("path", "./data/badger", "Path to the journal")
	rawTarget := flag.String("target", "", "Target to list, user:<id> or group:<id>")
	cursor := flag.String("cursor", "", "Cursor returned by a previous page")
	limit := flag.Int("limit", 20, "Messages per page")
	flag.Parse()

	target, ok := domain.ParseTarget(*rawTarget)
	if !ok {
		log.Fatalf("Invalid target %q", *rawTarget)
	}

	ctx := context.Background()
	journal, err := repositories.OpenJournal(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), repositories.JournalOptions{
		Backend:        *backend,
		BadgerFilepath: *path,
		SQLiteFilepath: *path,
		LimitMessages:  limit,
		ReadOnly:       true,
	})
	if err != nil {
		log.Fatal("Error while opening the journal: ", err)
	}
	if journal == nil {
		log.Fatal("No journal to inspect")
	}
	defer journal.Close()

	next, err := render(ctx, os.Stdout, journal, target, lo.EmptyableToPtr(*cursor))
	if err != nil {
		log.Fatal(err)
	}
	if next != nil {
		fmt.Printf("\nNext page: -cursor %s\n", *next)
	}
}

func render(ctx context.Context, out io.Writer, journal repositories.IJournal, target domain.Target, cursor *string) (*string, error) {
	messages, next, err := journal.GetMessages(ctx, target, cursor)
	if err != nil {
		return nil, err
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Message", "Timestamp", "Sender", "Content", "Recipient", "Status", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		deliveries, err := journal.GetDeliveries(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		row := []string{m.ID.String()[:8], m.At.Format("15:04:05"), m.Sender, m.BodyOrMediaRef}
		if len(deliveries) == 0 {
			table.Append(append(row, "-", "-", "-"))
			continue
		}
		for _, d := range deliveries {
			table.Append(append(append([]string(nil), row...), d.Recipient, strings.ToUpper(d.Status), lo.CoalesceOrEmpty(d.Reason, "-")))
		}
	}
	table.Render()
	return next, nil
}
