package policy_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vadim/neo-chat/internal/docstore"
	chatdao "github.com/vadim/neo-chat/internal/domain/chat/dao"
	"github.com/vadim/neo-chat/internal/domain/chat/entity"
	"github.com/vadim/neo-chat/internal/domain/chat/policy"
	"github.com/vadim/neo-chat/internal/domain/chat/service"
	userdao "github.com/vadim/neo-chat/internal/domain/user/dao"
	userentity "github.com/vadim/neo-chat/internal/domain/user/entity"
)

type fixture struct {
	store  *docstore.Memory
	conv   *chatdao.ConversationStore
	index  *chatdao.UserChatsStore
	users  *userdao.UserStore
	policy *policy.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := docstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conv := chatdao.NewConversationStore(store)
	index := chatdao.NewUserChatsStore(store)
	users := userdao.NewUserStore(store)

	cfg := service.Config{
		DeliveredDelay: 50 * time.Millisecond,
		SeenDelay:      50 * time.Millisecond,
		TypingExpiry:   50 * time.Millisecond,
	}
	engine := service.NewEngine(conv, service.NewUpdater(index, logger), nil, cfg, logger)

	return &fixture{
		store:  store,
		conv:   conv,
		index:  index,
		users:  users,
		policy: policy.New(engine, conv, index, users, nil),
	}
}

func (f *fixture) addUser(t *testing.T, id, username string) {
	t.Helper()
	ctx := context.Background()
	err := f.users.Create(ctx, &userentity.Profile{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Blocked:  []string{},
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	if err := f.index.CreateEmpty(ctx, id); err != nil {
		t.Fatalf("creating index for %s: %v", username, err)
	}
}

func TestCreateChatSeedsBothIndexes(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	ctx := context.Background()

	out, err := f.policy.CreateChat(ctx, policy.CreateChatInput{UserID: "u1", OtherUsername: "bob"})
	if err != nil {
		t.Fatalf("creating chat: %v", err)
	}
	if out.ChatID == "" {
		t.Fatal("chat id must be generated")
	}

	conv, err := f.conv.Get(ctx, out.ChatID)
	if err != nil {
		t.Fatalf("getting conversation: %v", err)
	}
	if !conv.HasParticipant("u1") || !conv.HasParticipant("u2") {
		t.Fatalf("participants = %v, want both users", conv.Participants)
	}

	for owner, other := range map[string]string{"u1": "u2", "u2": "u1"} {
		chats, err := f.index.Get(ctx, owner)
		if err != nil {
			t.Fatalf("getting index for %s: %v", owner, err)
		}
		if len(chats) != 1 || chats[0].ChatID != out.ChatID || chats[0].ReceiverID != other {
			t.Fatalf("index for %s = %+v, want one entry pointing at %s", owner, chats, other)
		}
		if !chats[0].IsSeen {
			t.Errorf("fresh entry for %s should start seen", owner)
		}
	}
}

func TestCreateChatWithSelf(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")

	_, err := f.policy.CreateChat(context.Background(), policy.CreateChatInput{UserID: "u1", OtherUsername: "alice"})
	if !errors.Is(err, entity.ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient, got %v", err)
	}
}

func TestCreateChatUnknownUsername(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")

	_, err := f.policy.CreateChat(context.Background(), policy.CreateChatInput{UserID: "u1", OtherUsername: "nobody"})
	if !errors.Is(err, userentity.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestListChatsNewUser(t *testing.T) {
	f := newFixture(t)

	// No index document at all: the list is empty, not an error.
	chats, err := f.policy.ListChats(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("chats = %+v, want empty", chats)
	}
}

func TestListChatsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"c-old", "c-new", "c-mid"} {
		at := base.Add(time.Duration(map[int]int{0: 0, 1: 2, 2: 1}[i]) * time.Minute)
		err := f.index.AddChat(ctx, "u1", entity.ChatSummary{ChatID: id, ReceiverID: "x", UpdatedAt: at})
		if err != nil {
			t.Fatalf("seeding entry: %v", err)
		}
	}

	chats, err := f.policy.ListChats(ctx, "u1")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	want := []string{"c-new", "c-mid", "c-old"}
	for i, w := range want {
		if chats[i].ChatID != w {
			t.Fatalf("order = %v, want %v", chats, want)
		}
	}
}

func TestHistoryRequiresParticipation(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	f.addUser(t, "u3", "eve")
	ctx := context.Background()

	out, err := f.policy.CreateChat(ctx, policy.CreateChatInput{UserID: "u1", OtherUsername: "bob"})
	if err != nil {
		t.Fatalf("creating chat: %v", err)
	}

	_, err = f.policy.History(ctx, policy.HistoryInput{UserID: "u3", ChatID: out.ChatID})
	if !errors.Is(err, entity.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	msgs, err := f.policy.History(ctx, policy.HistoryInput{UserID: "u2", ChatID: out.ChatID})
	if err != nil {
		t.Fatalf("participant history: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("messages = %+v, want empty for a fresh chat", msgs)
	}
}

func TestStatisticsWithoutArchive(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	ctx := context.Background()

	out, err := f.policy.CreateChat(ctx, policy.CreateChatInput{UserID: "u1", OtherUsername: "bob"})
	if err != nil {
		t.Fatalf("creating chat: %v", err)
	}

	if _, err := f.policy.Statistics(ctx, policy.StatisticsInput{UserID: "u1", ChatID: out.ChatID}); err == nil {
		t.Fatal("statistics without an archive must fail")
	}
}

func TestOpenSessionResolvesBlockFlags(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")
	f.addUser(t, "u2", "bob")
	ctx := context.Background()

	out, err := f.policy.CreateChat(ctx, policy.CreateChatInput{UserID: "u1", OtherUsername: "bob"})
	if err != nil {
		t.Fatalf("creating chat: %v", err)
	}

	// Alice blocks bob.
	if err := f.users.Block(ctx, "u1", "u2"); err != nil {
		t.Fatalf("blocking: %v", err)
	}

	aliceClient := f.policy.Client("u1", "alice")
	defer aliceClient.Close()
	aliceOut, err := f.policy.OpenSession(ctx, aliceClient, policy.OpenSessionInput{UserID: "u1", ChatID: out.ChatID})
	if err != nil {
		t.Fatalf("opening alice session: %v", err)
	}
	if aliceOut.CallerBlocked || !aliceOut.ReceiverBlocked {
		t.Fatalf("alice flags = caller %v / receiver %v, want the counterpart marked blocked", aliceOut.CallerBlocked, aliceOut.ReceiverBlocked)
	}

	bobClient := f.policy.Client("u2", "bob")
	defer bobClient.Close()
	bobOut, err := f.policy.OpenSession(ctx, bobClient, policy.OpenSessionInput{UserID: "u2", ChatID: out.ChatID})
	if err != nil {
		t.Fatalf("opening bob session: %v", err)
	}
	if !bobOut.CallerBlocked || bobOut.ReceiverBlocked {
		t.Fatalf("bob flags = caller %v / receiver %v, want the caller marked blocked", bobOut.CallerBlocked, bobOut.ReceiverBlocked)
	}
}

func TestOpenSessionUnknownChat(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "u1", "alice")

	client := f.policy.Client("u1", "alice")
	defer client.Close()
	_, err := f.policy.OpenSession(context.Background(), client, policy.OpenSessionInput{UserID: "u1", ChatID: "missing"})
	if !errors.Is(err, entity.ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}
