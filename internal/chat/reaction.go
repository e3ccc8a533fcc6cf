package chat

import (
	"context"
	"fmt"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/store"
)

// Supported reaction emoji.
const (
	EmojiThumbsUp = "👍"
	EmojiHeart    = "❤️"
	EmojiJoy      = "😂"
	EmojiWow      = "😮"
	EmojiCry      = "😢"
)

// Emojis lists the supported reactions in display order.
var Emojis = []string{EmojiThumbsUp, EmojiHeart, EmojiJoy, EmojiWow, EmojiCry}

// ValidEmoji reports whether e is a supported reaction.
func ValidEmoji(e string) bool {
	for _, v := range Emojis {
		if v == e {
			return true
		}
	}
	return false
}

// ReactionAction reports what SetReaction did.
type ReactionAction string

const (
	ReactionAdded    ReactionAction = "added"
	ReactionRemoved  ReactionAction = "removed"
	ReactionReplaced ReactionAction = "replaced"
)

// ReactionResult is the outcome of SetReaction.
type ReactionResult struct {
	Action ReactionAction
	Emoji  string
}

// ReactionView is a reaction as displayed to one member.
type ReactionView struct {
	ReactionID string
	Emoji      string
	Reactor    Profile
	IsMine     bool
	CreatedAt  int64
}

// SetReaction toggles the caller's reaction on a message. Reacting with the
// current emoji removes it and reacting with another emoji replaces it.
func (s *Service) SetReaction(ctx context.Context, id *Identity, messageID, emoji string) (ReactionResult, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return ReactionResult{}, err
	}
	if !ValidEmoji(emoji) {
		return ReactionResult{}, errorf(CodeInvalidArgument, "unsupported reaction %q", emoji)
	}

	res := ReactionResult{Emoji: emoji}
	var conv *store.Conversation
	var evt ChangeEvent
	err = s.db.InTx(ctx, func(tx *store.Tx) error {
		msg, err := tx.GetMessage(ctx, messageID)
		if err != nil {
			return fmt.Errorf("get message: %w", err)
		}
		if msg == nil || msg.IsDeleted {
			return errorf(CodeNotFound, "message not found")
		}
		if conv, err = member(ctx, tx.Queries, msg.ConversationID, me.ID); err != nil {
			return err
		}

		now := s.nowMs()
		existing, err := tx.GetReaction(ctx, messageID, me.ID)
		if err != nil {
			return fmt.Errorf("get reaction: %w", err)
		}
		switch {
		case existing == nil:
			err = tx.InsertReaction(ctx, &store.Reaction{
				ID: newID(), MessageID: messageID, UserID: me.ID, Type: emoji, CreatedAt: now,
			})
			res.Action = ReactionAdded
		case existing.Type == emoji:
			err = tx.DeleteReaction(ctx, existing.ID)
			res.Action = ReactionRemoved
		default:
			err = tx.ReplaceReaction(ctx, existing.ID, emoji, now)
			res.Action = ReactionReplaced
		}
		if err != nil {
			return fmt.Errorf("%s reaction: %w", res.Action, err)
		}

		evt = ChangeEvent{
			Kind:           bus.KindReactionChanged,
			ConversationID: msg.ConversationID,
			MessageID:      messageID,
			ActorID:        me.ID,
			Emoji:          emoji,
			Action:         string(res.Action),
			OccurredAt:     now,
		}
		return s.queue(ctx, tx, evt)
	})
	if err != nil {
		return ReactionResult{}, err
	}

	s.publish(evt, conv.MemberIDs)
	return res, nil
}

// ListReactions returns the reactions of a conversation grouped by message
// id. Messages without reactions and deleted messages are absent.
func (s *Service) ListReactions(ctx context.Context, id *Identity, conversationID string) (map[string][]ReactionView, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := member(ctx, s.db.Queries, conversationID, me.ID); err != nil {
		return nil, err
	}
	rows, err := s.db.ListReactions(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}

	out := make(map[string][]ReactionView)
	for _, r := range rows {
		out[r.MessageID] = append(out[r.MessageID], ReactionView{
			ReactionID: r.ID,
			Emoji:      r.Type,
			Reactor:    profileOf(r.User),
			IsMine:     r.UserID == me.ID,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}
