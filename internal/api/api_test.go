package api

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	testSecret = "test-secret"
	testIssuer = "parley-test"
)

type harness struct {
	t       *testing.T
	socket  string
	db      *store.DB
	bus     *bus.Bus
	machine *status.Machine
}

func newHarness(t *testing.T, limiter *RateLimiter) *harness {
	t.Helper()
	// Short path keeps the socket under the Unix path length limit.
	tmpDir, err := os.MkdirTemp("/tmp", "parley-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := store.Open(filepath.Join(tmpDir, "parley.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	b := bus.New()
	machine := status.NewMachine(b)
	svc := chat.NewService(db, nil, b, logger)
	verifier := auth.NewVerifier(testSecret, testIssuer)
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			verifier.UnaryServerInterceptor(logger),
			limiter.UnaryServerInterceptor(),
			ValidationInterceptor(),
		),
		grpc.ChainStreamInterceptor(verifier.StreamServerInterceptor(logger)),
	)
	chatv1.RegisterUserServiceServer(srv, NewUserService(svc))
	chatv1.RegisterConversationServiceServer(srv, NewConversationService(svc, b, logger))
	chatv1.RegisterMessageServiceServer(srv, NewMessageService(svc))
	chatv1.RegisterReactionServiceServer(srv, NewReactionService(svc))
	chatv1.RegisterTypingServiceServer(srv, NewTypingService(svc))
	chatv1.RegisterServerServiceServer(srv, NewServerService(ServerInfo{
		Profile:       "test",
		TypingBackend: "sqlite",
		StartedAt:     time.Now(),
	}, machine, db))

	socket := filepath.Join(tmpDir, "d.sock")
	lis, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return &harness{t: t, socket: socket, db: db, bus: b, machine: machine}
}

// conn dials the server as the user with the given subject. An empty
// subject dials anonymously.
func (h *harness) conn(subject, name string) *grpc.ClientConn {
	h.t.Helper()
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if subject != "" {
		tok, err := auth.Mint(testSecret, testIssuer, chat.Identity{Subject: subject, Name: name}, time.Hour, time.Now())
		if err != nil {
			h.t.Fatal(err)
		}
		opts = append(opts, grpc.WithPerRPCCredentials(auth.BearerToken(tok)))
	}
	cc, err := grpc.NewClient("unix://"+h.socket, opts...)
	if err != nil {
		h.t.Fatal(err)
	}
	h.t.Cleanup(func() { _ = cc.Close() })
	return cc
}

func (h *harness) resolve(cc *grpc.ClientConn) *chatv1.User {
	h.t.Helper()
	resp, err := chatv1.NewUserServiceClient(cc).ResolveUser(context.Background(), &chatv1.ResolveUserRequest{})
	if err != nil {
		h.t.Fatalf("ResolveUser error = %v", err)
	}
	return resp.User
}

func wantStatus(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := grpcstatus.Code(err); got != code {
		t.Fatalf("got %s (%v), want %s", got, err, code)
	}
}

func TestAnonymousCalls(t *testing.T) {
	h := newHarness(t, nil)
	cc := h.conn("", "")
	ctx := context.Background()

	list, err := chatv1.NewConversationServiceClient(cc).ListConversations(ctx, &chatv1.ListConversationsRequest{})
	if err != nil {
		t.Fatalf("ListConversations error = %v", err)
	}
	if !list.NotReady {
		t.Error("expected not_ready for anonymous query")
	}
	if list.Conversations == nil {
		t.Error("conversations should be an empty list, not null")
	}

	_, err = chatv1.NewMessageServiceClient(cc).SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: "c", Content: "hi"})
	wantStatus(t, err, codes.Unauthenticated)

	// Status needs no identity.
	st, err := chatv1.NewServerServiceClient(cc).GetStatus(ctx, &chatv1.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if st.State != string(status.Starting) {
		t.Errorf("state = %q, want %q", st.State, status.Starting)
	}
	if st.Profile != "test" {
		t.Errorf("profile = %q, want test", st.Profile)
	}
}

func TestDirectConversationOverGRPC(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, bob := h.conn("alice", "Alice"), h.conn("bob", "Bob")
	h.resolve(alice)
	bobUser := h.resolve(bob)

	convs := chatv1.NewConversationServiceClient(alice)
	created, err := convs.CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "bob"})
	if err != nil {
		t.Fatalf("CreateOrGetDirect error = %v", err)
	}
	if !created.IsNew {
		t.Error("expected a new conversation")
	}
	if created.Peer.UserID != bobUser.UserID {
		t.Errorf("peer = %q, want %q", created.Peer.UserID, bobUser.UserID)
	}

	again, err := chatv1.NewConversationServiceClient(bob).CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if again.IsNew || again.ConversationID != created.ConversationID {
		t.Errorf("got (%q, new=%v), want existing %q", again.ConversationID, again.IsNew, created.ConversationID)
	}

	_, err = convs.CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "alice"})
	wantStatus(t, err, codes.InvalidArgument)
	_, err = convs.CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "nobody"})
	wantStatus(t, err, codes.NotFound)

	msgs := chatv1.NewMessageServiceClient(alice)
	sent, err := msgs.SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: created.ConversationID, Content: "hello"})
	if err != nil {
		t.Fatalf("SendMessage error = %v", err)
	}

	list, err := chatv1.NewConversationServiceClient(bob).ListConversations(ctx, &chatv1.ListConversationsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(list.Conversations))
	}
	sum := list.Conversations[0]
	if sum.UnreadCount != 1 {
		t.Errorf("unread = %d, want 1", sum.UnreadCount)
	}
	if sum.LastMessagePreview == nil || *sum.LastMessagePreview != "hello" {
		t.Errorf("preview = %v, want hello", sum.LastMessagePreview)
	}
	if sum.Name != "Alice" {
		t.Errorf("name = %q, want Alice", sum.Name)
	}

	_, err = chatv1.NewMessageServiceClient(bob).DeleteMessage(ctx, &chatv1.DeleteMessageRequest{MessageID: sent.MessageID})
	wantStatus(t, err, codes.PermissionDenied)

	if _, err := msgs.DeleteMessage(ctx, &chatv1.DeleteMessageRequest{MessageID: sent.MessageID}); err != nil {
		t.Fatalf("DeleteMessage error = %v", err)
	}
	history, err := chatv1.NewMessageServiceClient(bob).ListMessages(ctx, &chatv1.ListMessagesRequest{ConversationID: created.ConversationID})
	if err != nil {
		t.Fatal(err)
	}
	if len(history.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(history.Messages))
	}
	if m := history.Messages[0]; !m.Deleted || m.Content != "" || m.IsMine {
		t.Errorf("message = %+v, want deleted without content", m)
	}

	if _, err := chatv1.NewConversationServiceClient(bob).MarkRead(ctx, &chatv1.MarkReadRequest{ConversationID: created.ConversationID}); err != nil {
		t.Fatal(err)
	}
	list, err = chatv1.NewConversationServiceClient(bob).ListConversations(ctx, &chatv1.ListConversationsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got := list.Conversations[0].UnreadCount; got != 0 {
		t.Errorf("unread after mark read = %d, want 0", got)
	}
}

func TestGroupReactionsAndTyping(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, bob, carol := h.conn("alice", "Alice"), h.conn("bob", "Bob"), h.conn("carol", "Carol")
	h.resolve(alice)
	b := h.resolve(bob)
	h.resolve(carol)

	group, err := chatv1.NewConversationServiceClient(alice).CreateGroup(ctx, &chatv1.CreateGroupRequest{Name: "  Team  ", MemberIDs: []string{b.UserID}})
	if err != nil {
		t.Fatalf("CreateGroup error = %v", err)
	}
	if group.Name != "Team" {
		t.Errorf("name = %q, want Team", group.Name)
	}

	info, err := chatv1.NewConversationServiceClient(bob).GetPeerInfo(ctx, &chatv1.GetPeerInfoRequest{ConversationID: group.ConversationID})
	if err != nil {
		t.Fatal(err)
	}
	if info.Group == nil || info.Group.MemberCount != 2 || info.Direct != nil {
		t.Fatalf("peer info = %+v, want group of 2", info)
	}

	_, err = chatv1.NewConversationServiceClient(carol).GetPeerInfo(ctx, &chatv1.GetPeerInfoRequest{ConversationID: group.ConversationID})
	wantStatus(t, err, codes.PermissionDenied)

	sent, err := chatv1.NewMessageServiceClient(alice).SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: group.ConversationID, Content: "hi"})
	if err != nil {
		t.Fatal(err)
	}

	reactions := chatv1.NewReactionServiceClient(bob)
	steps := []struct {
		emoji, want string
	}{
		{chat.EmojiThumbsUp, "added"},
		{chat.EmojiHeart, "replaced"},
		{chat.EmojiHeart, "removed"},
		{chat.EmojiJoy, "added"},
	}
	for _, s := range steps {
		res, err := reactions.SetReaction(ctx, &chatv1.SetReactionRequest{MessageID: sent.MessageID, Emoji: s.emoji})
		if err != nil {
			t.Fatalf("SetReaction(%s) error = %v", s.emoji, err)
		}
		if res.Action != s.want {
			t.Errorf("SetReaction(%s) = %q, want %q", s.emoji, res.Action, s.want)
		}
	}
	_, err = reactions.SetReaction(ctx, &chatv1.SetReactionRequest{MessageID: sent.MessageID, Emoji: "🦄"})
	wantStatus(t, err, codes.InvalidArgument)

	listed, err := chatv1.NewReactionServiceClient(alice).ListReactions(ctx, &chatv1.ListReactionsRequest{ConversationID: group.ConversationID})
	if err != nil {
		t.Fatal(err)
	}
	got := listed.Reactions[sent.MessageID]
	if len(got) != 1 || got[0].Emoji != chat.EmojiJoy || got[0].IsMine {
		t.Errorf("reactions = %+v, want one laugh from bob", got)
	}

	// IsTyping defaults to true.
	if _, err := chatv1.NewTypingServiceClient(bob).SetTyping(ctx, &chatv1.SetTypingRequest{ConversationID: group.ConversationID}); err != nil {
		t.Fatal(err)
	}
	typing, err := chatv1.NewTypingServiceClient(alice).GetTypingStatus(ctx, &chatv1.GetTypingStatusRequest{ConversationID: group.ConversationID})
	if err != nil {
		t.Fatal(err)
	}
	if len(typing.Typing) != 1 || typing.Typing[0].Identity != "bob" {
		t.Fatalf("typing = %+v, want bob", typing.Typing)
	}

	stop := false
	if _, err := chatv1.NewTypingServiceClient(bob).SetTyping(ctx, &chatv1.SetTypingRequest{ConversationID: group.ConversationID, IsTyping: &stop}); err != nil {
		t.Fatal(err)
	}
	typing, err = chatv1.NewTypingServiceClient(alice).GetTypingStatus(ctx, &chatv1.GetTypingStatusRequest{ConversationID: group.ConversationID})
	if err != nil {
		t.Fatal(err)
	}
	if len(typing.Typing) != 0 {
		t.Errorf("typing = %+v, want none", typing.Typing)
	}
}

func TestValidationInterceptor(t *testing.T) {
	h := newHarness(t, nil)
	cc := h.conn("alice", "Alice")
	h.resolve(cc)

	_, err := chatv1.NewMessageServiceClient(cc).SendMessage(context.Background(), &chatv1.SendMessageRequest{Content: "orphan"})
	wantStatus(t, err, codes.InvalidArgument)
	if msg := grpcstatus.Convert(err).Message(); msg != "conversation_id is required" {
		t.Errorf("message = %q, want conversation_id is required", msg)
	}
}

func TestRateLimitedMutations(t *testing.T) {
	h := newHarness(t, NewRateLimiter(1, 1))
	ctx := context.Background()
	alice, bob := h.conn("alice", "Alice"), h.conn("bob", "Bob")
	h.resolve(alice)
	h.resolve(bob)

	conv, err := chatv1.NewConversationServiceClient(alice).CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "bob"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = chatv1.NewMessageServiceClient(alice).SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: conv.ConversationID, Content: "hi"})
	wantStatus(t, err, codes.ResourceExhausted)

	// Queries are not limited.
	if _, err := chatv1.NewConversationServiceClient(alice).ListConversations(ctx, &chatv1.ListConversationsRequest{}); err != nil {
		t.Errorf("ListConversations error = %v", err)
	}
	// Budgets are per subject.
	if _, err := chatv1.NewMessageServiceClient(bob).SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: conv.ConversationID, Content: "hey"}); err != nil {
		t.Errorf("bob SendMessage error = %v", err)
	}
}

func TestWatchStreamsMemberEvents(t *testing.T) {
	h := newHarness(t, nil)
	alice, bob, carol := h.conn("alice", "Alice"), h.conn("bob", "Bob"), h.conn("carol", "Carol")
	h.resolve(alice)
	h.resolve(bob)
	h.resolve(carol)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conv, err := chatv1.NewConversationServiceClient(alice).CreateOrGetDirect(ctx, &chatv1.CreateOrGetDirectRequest{OtherExternalID: "bob"})
	if err != nil {
		t.Fatal(err)
	}

	bobStream, err := chatv1.NewConversationServiceClient(bob).Watch(ctx, &chatv1.WatchRequest{Kinds: []string{"message"}})
	if err != nil {
		t.Fatal(err)
	}
	carolStream, err := chatv1.NewConversationServiceClient(carol).Watch(ctx, &chatv1.WatchRequest{})
	if err != nil {
		t.Fatal(err)
	}
	for h.bus.Subscribers() < 2 {
		if ctx.Err() != nil {
			t.Fatal("streams never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sent, err := chatv1.NewMessageServiceClient(alice).SendMessage(ctx, &chatv1.SendMessageRequest{ConversationID: conv.ConversationID, Content: "ping"})
	if err != nil {
		t.Fatal(err)
	}

	evt, err := bobStream.Recv()
	if err != nil {
		t.Fatalf("Recv error = %v", err)
	}
	if evt.Kind != bus.KindMessageSent || evt.MessageID != sent.MessageID || evt.ConversationID != conv.ConversationID {
		t.Errorf("event = %+v, want message.sent for %s", evt, sent.MessageID)
	}

	// Carol is not a member, so the first thing she sees is the status change.
	if err := h.machine.Transition(status.Migrating); err != nil {
		t.Fatal(err)
	}
	evt, err = carolStream.Recv()
	if err != nil {
		t.Fatalf("Recv error = %v", err)
	}
	if evt.Kind != bus.KindServerStatusChanged || evt.Status != string(status.Migrating) {
		t.Errorf("event = %+v, want status change to MIGRATING", evt)
	}
}

func TestWatchRequiresIdentity(t *testing.T) {
	h := newHarness(t, nil)
	stream, err := chatv1.NewConversationServiceClient(h.conn("", "")).Watch(context.Background(), &chatv1.WatchRequest{})
	if err == nil {
		_, err = stream.Recv()
	}
	wantStatus(t, err, codes.Unauthenticated)
}

func TestWantEvent(t *testing.T) {
	tests := []struct {
		name string
		req  chatv1.WatchRequest
		evt  bus.Event
		want bool
	}{
		{"no filter", chatv1.WatchRequest{}, bus.Event{Kind: bus.KindMessageSent, Topic: "c1"}, true},
		{"other conversation", chatv1.WatchRequest{ConversationID: "c1"}, bus.Event{Kind: bus.KindMessageSent, Topic: "c2"}, false},
		{"server-wide", chatv1.WatchRequest{ConversationID: "c1"}, bus.Event{Kind: bus.KindServerStatusChanged}, true},
		{"kind prefix", chatv1.WatchRequest{Kinds: []string{"message"}}, bus.Event{Kind: bus.KindMessageDeleted}, true},
		{"kind mismatch", chatv1.WatchRequest{Kinds: []string{"typing"}}, bus.Event{Kind: bus.KindMessageDeleted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wantEvent(&tt.req, tt.evt); got != tt.want {
				t.Errorf("wantEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}
