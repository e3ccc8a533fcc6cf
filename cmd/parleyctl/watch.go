package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/client"
	"github.com/matheus3301/parley/internal/presence"
	"go.uber.org/zap"
)

// cmdWatch streams change events. Alongside the stream it keeps the caller
// online and prints typing and presence changes as they expire locally.
func cmdWatch(c *client.Client, args []string, g globals) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	kinds := fs.String("kinds", "", "comma-separated event kind prefixes")
	_ = fs.Parse(args)

	req := &chatv1.WatchRequest{ConversationID: fs.Arg(0)}
	if *kinds != "" {
		req.Kinds = strings.Split(*kinds, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	stream, err := c.Conversations.Watch(ctx, req)
	if err != nil {
		fail(err)
	}
	c.KeepAlive(ctx, presence.HeartbeatInterval, logger)

	typingPush := make(chan struct{}, 1)
	presencePush := make(chan struct{}, 1)

	if req.ConversationID != "" {
		tw := client.NewTypingWatcher(
			func(ctx context.Context) ([]chatv1.TypingEntry, error) {
				resp, err := c.Typing.GetTypingStatus(ctx, &chatv1.GetTypingStatusRequest{ConversationID: req.ConversationID})
				if err != nil {
					return nil, err
				}
				return resp.Typing, nil
			},
			func(entries []chatv1.TypingEntry) {
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					names = append(names, e.Name)
				}
				printLine(g, "typing", names)
			},
		)
		go func() {
			if err := tw.Run(ctx, typingPush); err != nil {
				logger.Warn("typing watcher stopped", zap.Error(err))
			}
		}()
	}

	pw := client.NewPresenceWatcher(
		func(ctx context.Context) ([]chatv1.User, error) {
			resp, err := c.Users.ListUsers(ctx, &chatv1.ListUsersRequest{})
			if err != nil {
				return nil, err
			}
			return resp.Users, nil
		},
		func(users []chatv1.User) {
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Name)
			}
			printLine(g, "online", names)
		},
	)
	go func() {
		if err := pw.Run(ctx, presencePush); err != nil {
			logger.Warn("presence watcher stopped", zap.Error(err))
		}
	}()
	// Last-seen times change without events, so refresh them on the
	// heartbeat cadence too.
	go func() {
		ticker := time.NewTicker(presence.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				nudge(presencePush)
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		if err != nil {
			fail(err)
		}
		if evt.Kind == bus.KindTypingChanged {
			nudge(typingPush)
		}
		nudge(presencePush)
		printEvent(g, evt)
	}
}

func nudge(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func printEvent(g globals, evt *chatv1.Event) {
	if g.json {
		outputJSON(evt)
		return
	}
	at := formatTime(evt.OccurredAt)
	switch {
	case evt.Status != "":
		fmt.Printf("%s  %s %s\n", at, evt.Kind, evt.Status)
	case evt.Emoji != "":
		fmt.Printf("%s  %s %s %s on %s\n", at, evt.Kind, evt.Action, evt.Emoji, evt.MessageID)
	case evt.MessageID != "":
		fmt.Printf("%s  %s %s in %s\n", at, evt.Kind, evt.MessageID, evt.ConversationID)
	default:
		fmt.Printf("%s  %s %s\n", at, evt.Kind, evt.ConversationID)
	}
}

func printLine(g globals, label string, names []string) {
	if g.json {
		outputJSON(map[string]any{label: names})
		return
	}
	if len(names) == 0 {
		fmt.Printf("%s: nobody\n", label)
		return
	}
	fmt.Printf("%s: %s\n", label, strings.Join(names, ", "))
}
