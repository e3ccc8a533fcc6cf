package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/presence"
)

type command struct {
	minArgs int
	usage   string
	run     func(ctx context.Context, c *client.Client, args []string, g globals)
}

var commands = map[string]command{
	"status":    {0, "", cmdStatus},
	"whoami":    {0, "", cmdWhoami},
	"users":     {0, "[search]", cmdUsers},
	"dm":        {1, "<external-id>", cmdDirect},
	"group":     {2, "<name> <user-id>...", cmdGroup},
	"ls":        {0, "", cmdList},
	"peer":      {1, "<conversation>", cmdPeer},
	"send":      {2, "<conversation> <text>", cmdSend},
	"history":   {1, "<conversation>", cmdHistory},
	"rm":        {1, "<message>", cmdDelete},
	"read":      {1, "<conversation>", cmdRead},
	"react":     {2, "<message> <emoji>", cmdReact},
	"reactions": {1, "<conversation>", cmdReactions},
	"typing":    {1, "<conversation> [on|off]", cmdTyping},
	"who":       {1, "<conversation>", cmdWho},
}

func requireReady(notReady bool) {
	if notReady {
		fmt.Fprintln(os.Stderr, "not signed in: pass --token or set PARLEY_TOKEN (see parleyctl token)")
		os.Exit(1)
	}
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

func onlineMark(lastSeenAt int64) string {
	if presence.IsOnline(lastSeenAt, time.Now()) {
		return "online"
	}
	return "last seen " + formatTime(lastSeenAt)
}

func cmdStatus(ctx context.Context, c *client.Client, _ []string, g globals) {
	resp, err := c.Server.GetStatus(ctx, &chatv1.GetStatusRequest{})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("Profile:       %s\n", resp.Profile)
	fmt.Printf("State:         %s\n", resp.State)
	fmt.Printf("Uptime:        %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	fmt.Printf("Users:         %d\n", resp.Users)
	fmt.Printf("Conversations: %d\n", resp.Conversations)
	fmt.Printf("Messages:      %d\n", resp.Messages)
	fmt.Printf("Typing:        %s\n", resp.TypingBackend)
	fmt.Printf("Events:        %v\n", resp.EventsEnabled)
}

func cmdWhoami(ctx context.Context, c *client.Client, _ []string, g globals) {
	resp, err := c.Users.ResolveUser(ctx, &chatv1.ResolveUserRequest{})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp.User)
		return
	}
	u := resp.User
	fmt.Printf("User:     %s\n", u.UserID)
	fmt.Printf("Identity: %s\n", u.ExternalID)
	fmt.Printf("Name:     %s\n", u.Name)
	if u.Email != "" {
		fmt.Printf("Email:    %s\n", u.Email)
	}
}

func cmdUsers(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Users.ListUsers(ctx, &chatv1.ListUsersRequest{Search: strings.Join(args, " ")})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	if g.json {
		outputJSON(resp.Users)
		return
	}
	if len(resp.Users) == 0 {
		fmt.Println("No users found.")
		return
	}
	for _, u := range resp.Users {
		fmt.Printf("%-36s %-20s %-24s %s\n", u.UserID, u.ExternalID, u.Name, onlineMark(u.LastSeenAt))
	}
}

func cmdDirect(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Conversations.CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: args[0]})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	verb := "Existing"
	if resp.IsNew {
		verb = "New"
	}
	fmt.Printf("%s conversation %s with %s\n", verb, resp.ConversationID, resp.Peer.Name)
}

func cmdGroup(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Conversations.CreateGroup(ctx, &chatv1.CreateGroupRequest{Name: args[0], MemberIDs: args[1:]})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("Group %q created: %s\n", resp.Name, resp.ConversationID)
}

func cmdList(ctx context.Context, c *client.Client, _ []string, g globals) {
	resp, err := c.Conversations.ListConversations(ctx, &chatv1.ListConversationsRequest{})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	if g.json {
		outputJSON(resp.Conversations)
		return
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, cv := range resp.Conversations {
		preview := "(no messages)"
		if cv.LastMessagePreview != nil {
			preview = *cv.LastMessagePreview
		}
		unread := ""
		if cv.UnreadCount > 0 {
			unread = fmt.Sprintf(" [%d]", cv.UnreadCount)
		}
		fmt.Printf("%-36s %-6s %s%s\n    %s\n", cv.ConversationID, cv.Kind, cv.Name, unread, preview)
	}
}

func cmdPeer(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Conversations.GetPeerInfo(ctx, &chatv1.GetPeerInfoRequest{ConversationID: args[0]})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	if g.json {
		outputJSON(resp)
		return
	}
	switch {
	case resp.Direct != nil:
		fmt.Printf("%s (%s), %s\n", resp.Direct.Name, resp.Direct.ExternalID, onlineMark(resp.Direct.LastSeenAt))
	case resp.Group != nil:
		fmt.Printf("%s, %d members\n", resp.Group.Name, resp.Group.MemberCount)
		for _, m := range resp.Group.Members {
			fmt.Printf("  %s (%s)\n", m.Name, m.ExternalID)
		}
	}
}

func cmdSend(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Messages.SendMessage(ctx, &chatv1.SendMessageRequest{
		ConversationID: args[0],
		Content:        strings.Join(args[1:], " "),
	})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	fmt.Println(resp.MessageID)
}

func cmdHistory(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Messages.ListMessages(ctx, &chatv1.ListMessagesRequest{ConversationID: args[0]})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	if g.json {
		outputJSON(resp.Messages)
		return
	}
	for _, m := range resp.Messages {
		body := m.Content
		if m.Deleted {
			body = "(deleted)"
		}
		fmt.Printf("%s  %-20s %s  [%s]\n", formatTime(m.CreatedAt), m.Sender.Name, body, m.MessageID)
	}
}

func cmdDelete(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Messages.DeleteMessage(ctx, &chatv1.DeleteMessageRequest{MessageID: args[0]})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("Deleted %s\n", resp.MessageID)
}

func cmdRead(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Conversations.MarkRead(ctx, &chatv1.MarkReadRequest{ConversationID: args[0]})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
	}
}

func cmdReact(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Reactions.SetReaction(ctx, &chatv1.SetReactionRequest{MessageID: args[0], Emoji: args[1]})
	if err != nil {
		fail(err)
	}
	if g.json {
		outputJSON(resp)
		return
	}
	fmt.Printf("%s %s\n", resp.Emoji, resp.Action)
}

func cmdReactions(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Reactions.ListReactions(ctx, &chatv1.ListReactionsRequest{ConversationID: args[0]})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	if g.json {
		outputJSON(resp.Reactions)
		return
	}
	for msgID, rs := range resp.Reactions {
		names := make([]string, 0, len(rs))
		for _, r := range rs {
			names = append(names, r.Emoji+" "+r.User.Name)
		}
		fmt.Printf("%s: %s\n", msgID, strings.Join(names, ", "))
	}
}

func cmdTyping(ctx context.Context, c *client.Client, args []string, _ globals) {
	req := &chatv1.SetTypingRequest{ConversationID: args[0]}
	if len(args) > 1 {
		on := args[1] != "off"
		req.IsTyping = &on
	}
	if _, err := c.Typing.SetTyping(ctx, req); err != nil {
		fail(err)
	}
}

func cmdWho(ctx context.Context, c *client.Client, args []string, g globals) {
	resp, err := c.Typing.GetTypingStatus(ctx, &chatv1.GetTypingStatusRequest{ConversationID: args[0]})
	if err != nil {
		fail(err)
	}
	requireReady(resp.NotReady)
	now := time.Now()
	var typing []chatv1.TypingEntry
	for _, e := range resp.Typing {
		if presence.IsTyping(e.UpdatedAt, now) {
			typing = append(typing, e)
		}
	}
	if g.json {
		outputJSON(typing)
		return
	}
	if len(typing) == 0 {
		fmt.Println("Nobody is typing.")
		return
	}
	for _, e := range typing {
		fmt.Printf("%s is typing\n", e.Name)
	}
}
