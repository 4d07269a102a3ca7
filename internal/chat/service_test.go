package chat

import (
	"context"
	"testing"
	"time"

	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	store   *store.MemoryStore
	svc     *Service
	buyer   *models.User
	seller  *models.User
	listing *models.Listing
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Now().UTC()

	buyer := &models.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", DisplayName: "Ana", CreatedAt: now, UpdatedAt: now}
	seller := &models.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com", DisplayName: "Bob", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Users().CreateUser(ctx, buyer))
	require.NoError(t, st.Users().CreateUser(ctx, seller))

	listing := &models.Listing{
		ID:        uuid.New(),
		SellerID:  seller.ID,
		Title:     "Standing desk",
		Price:     200,
		Status:    models.ListingActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Listings().CreateListing(ctx, listing))

	return &serviceFixture{store: st, svc: NewService(st), buyer: buyer, seller: seller, listing: listing}
}

func TestStartChat_CreatesAndDedupes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, f.buyer.ID, chat.BuyerID)
	assert.Equal(t, f.seller.ID, chat.SellerID, "seller must be derived from the listing owner")
	assert.Equal(t, f.listing.ID, chat.ListingID)

	again, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID, "starting twice must return the same chat")
}

func TestStartChat_RejectsOwnListing(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.StartChat(context.Background(), f.seller.ID, f.listing.ID)
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestStartChat_ListingNotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.StartChat(context.Background(), f.buyer.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrListingNotFound)
}

func TestSendMessage_AppendsAndTouchesChat(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	msg, updated, err := f.svc.SendMessage(ctx, f.buyer.ID, chat.ID, "is this still available?")
	require.NoError(t, err)
	assert.Equal(t, models.KindUser, msg.Kind)
	assert.False(t, msg.IsRead)
	assert.Equal(t, "is this still available?", updated.LastMessageText)
	assert.Equal(t, msg.CreatedAt, updated.LastMessageAt)

	stored, err := f.store.Chats().GetChatByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "is this still available?", stored.LastMessageText)
}

func TestSendMessage_ParticipantsOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	_, _, err = f.svc.SendMessage(ctx, uuid.New(), chat.ID, "hello")
	assert.ErrorIs(t, err, ErrNotParticipant)

	msgs, err := f.store.Messages().GetMessagesByChatID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessages_OrderedOldestFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	_, _, err = f.svc.SendMessage(ctx, f.buyer.ID, chat.ID, "first")
	require.NoError(t, err)
	_, _, err = f.svc.SendMessage(ctx, f.seller.ID, chat.ID, "second")
	require.NoError(t, err)

	msgs, err := f.svc.Messages(ctx, f.buyer.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)

	_, err = f.svc.Messages(ctx, uuid.New(), chat.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMarkRead_IsIdempotentAndScopedToOthers(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	_, _, err = f.svc.SendMessage(ctx, f.buyer.ID, chat.ID, "hi")
	require.NoError(t, err)
	_, _, err = f.svc.SendMessage(ctx, f.buyer.ID, chat.ID, "you there?")
	require.NoError(t, err)

	count, err := f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The sender's own messages never count against them.
	count, err = f.svc.UnreadCount(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, f.svc.MarkRead(ctx, f.seller.ID, chat.ID))
	count, err = f.svc.UnreadCount(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, f.svc.MarkRead(ctx, f.seller.ID, chat.ID))

	err = f.svc.MarkRead(ctx, uuid.New(), chat.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestUserChats_EnrichedAndOrderedByActivity(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	second := &models.Listing{
		ID:        uuid.New(),
		SellerID:  f.seller.ID,
		Title:     "Office chair",
		Price:     80,
		Status:    models.ListingActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.Listings().CreateListing(ctx, second))

	chatA, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)
	chatB, err := f.svc.StartChat(ctx, f.buyer.ID, second.ID)
	require.NoError(t, err)

	// Activity in chat A after chat B was created moves A to the top.
	time.Sleep(time.Millisecond)
	_, _, err = f.svc.SendMessage(ctx, f.buyer.ID, chatA.ID, "bump")
	require.NoError(t, err)

	chats, err := f.svc.UserChats(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, chatA.ID, chats[0].ID)
	assert.Equal(t, chatB.ID, chats[1].ID)

	top := chats[0]
	assert.False(t, top.IsSeller)
	require.NotNil(t, top.Listing)
	assert.Equal(t, f.listing.Title, top.Listing.Title)
	require.NotNil(t, top.OtherUser)
	assert.Equal(t, f.seller.ID, top.OtherUser.ID)
	assert.Equal(t, "Bob", top.OtherUser.Name)

	sellerChats, err := f.svc.UserChats(ctx, f.seller.ID)
	require.NoError(t, err)
	require.Len(t, sellerChats, 2)
	assert.True(t, sellerChats[0].IsSeller)
	assert.Equal(t, 1, sellerChats[0].UnreadCount)
}

func TestChatByID_Authorization(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	chat, err := f.svc.StartChat(ctx, f.buyer.ID, f.listing.ID)
	require.NoError(t, err)

	got, err := f.svc.ChatByID(ctx, f.seller.ID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)
	require.NotNil(t, got.OtherUser)
	assert.Equal(t, f.buyer.ID, got.OtherUser.ID)

	_, err = f.svc.ChatByID(ctx, uuid.New(), chat.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.svc.ChatByID(ctx, f.buyer.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrChatNotFound)
}
