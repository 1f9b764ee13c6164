package main

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/services"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// familyPhoto is the head of the PNG shared in the demo, enough to sniff its type.
var familyPhoto = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// replayDemo plays the family conversation: Rehan creates Family, adds
// Puchku, Baba and Mummum, then everyone talks while connected to transport.
func replayDemo(ctx context.Context, service services.IChatService, transport contract.Transport) ([]domain.Receipt, error) {
	users := make(map[string]domain.UserID)
	for _, name := range []string{"Rehan", "Puchku", "Baba", "Mummum"} {
		id, err := service.CreateUser(name)
		if err != nil {
			return nil, err
		}
		users[name] = id
		if err = service.Connect(ctx, id, transport); err != nil {
			return nil, err
		}
	}

	family, err := service.CreateGroup("Family", users["Rehan"])
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"Puchku", "Baba", "Mummum"} {
		if err = service.AddMember(family, users[name], users["Rehan"]); err != nil {
			return nil, err
		}
	}

	steps := []func() (domain.Receipt, error){
		func() (domain.Receipt, error) {
			return service.SendMessageToUser(ctx, users["Rehan"], users["Puchku"], "Hello")
		},
		func() (domain.Receipt, error) {
			return service.SendMessageToUser(ctx, users["Puchku"], users["Rehan"], "Hi")
		},
		func() (domain.Receipt, error) {
			return service.SendMessageToGroup(ctx, users["Rehan"], family, "Hello Everyone!")
		},
		func() (domain.Receipt, error) {
			return service.SendMessageToGroup(ctx, users["Puchku"], family, "Hi!")
		},
		func() (domain.Receipt, error) {
			photo := domain.NewMediaFromContent(users["Rehan"], "blob://family-photo", familyPhoto)
			return service.SendMediaToGroup(ctx, users["Rehan"], family, photo)
		},
	}

	receipts := make([]domain.Receipt, 0, len(steps))
	for i, step := range steps {
		receipt, err := step()
		if err != nil {
			return receipts, fmt.Errorf("step %d: %w", i+1, err)
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

func delivered(receipts []domain.Receipt) int {
	return lo.SumBy(receipts, func(r domain.Receipt) int { return len(r.Delivered()) })
}

// printReport renders one row per recipient outcome.
func printReport(out io.Writer, receipts []domain.Receipt) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Entry", "Sender", "Target", "Recipient", "Status", "Reason"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, r := range receipts {
		id := r.Entry.ID.String()[:8]
		for _, d := range r.Deliveries {
			table.Append([]string{
				id,
				string(r.Entry.Sender),
				r.Entry.Target.String(),
				string(d.Recipient),
				strings.ToUpper(string(d.Status)),
				lo.Ternary(d.Reason == domain.ReasonNone, "-", string(d.Reason)),
			})
		}
	}
	table.Render()
}
