package offer

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradenest-backend/internal/models"
	"tradenest-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	store   *store.MemoryStore
	engine  *Engine
	buyer   uuid.UUID
	seller  uuid.UUID
	listing *models.Listing
	chat    *models.Chat
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	now := time.Now().UTC()

	buyer := &models.User{ID: uuid.New(), Username: "buyer", Email: "buyer@example.com", CreatedAt: now, UpdatedAt: now}
	seller := &models.User{ID: uuid.New(), Username: "seller", Email: "seller@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Users().CreateUser(ctx, buyer))
	require.NoError(t, st.Users().CreateUser(ctx, seller))

	listing := &models.Listing{
		ID:        uuid.New(),
		SellerID:  seller.ID,
		Title:     "Vintage road bike",
		Price:     450,
		Status:    models.ListingActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Listings().CreateListing(ctx, listing))

	chat := &models.Chat{
		ID:            uuid.New(),
		ListingID:     listing.ID,
		BuyerID:       buyer.ID,
		SellerID:      seller.ID,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, st.Chats().CreateChat(ctx, chat))

	return &engineFixture{
		store:   st,
		engine:  NewEngine(st),
		buyer:   buyer.ID,
		seller:  seller.ID,
		listing: listing,
		chat:    chat,
	}
}

func TestMakeOffer_CreatesPendingOffer(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	note := "would you take 400?"
	act, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, &note)
	require.NoError(t, err)
	require.NotNil(t, act)

	assert.Equal(t, models.OfferPending, act.Offer.Status)
	assert.Equal(t, 400.0, act.Offer.Amount)
	assert.Equal(t, f.buyer, act.Offer.BuyerID)
	assert.Equal(t, f.seller, act.Offer.SellerID)
	assert.Equal(t, f.listing.ID, act.Offer.ListingID)
	require.NotNil(t, act.Offer.Message)
	assert.Equal(t, note, *act.Offer.Message)
	assert.Nil(t, act.Offer.ResolvedAt)

	// The activity message and the chat cache update land together.
	require.NotNil(t, act.Message)
	assert.Equal(t, "Buyer made an offer", act.Message.Text)
	assert.Equal(t, models.KindOfferActivity, act.Message.Kind)
	require.NotNil(t, act.Message.OfferID)
	assert.Equal(t, act.Offer.ID, *act.Message.OfferID)
	assert.True(t, act.Message.IsRead)

	chat, err := f.store.Chats().GetChatByID(ctx, f.chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buyer made an offer", chat.LastMessageText)
	assert.Equal(t, act.Message.CreatedAt, chat.LastMessageAt)

	msgs, err := f.store.Messages().GetMessagesByChatID(ctx, f.chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestMakeOffer_EditsPendingOfferInPlace(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	second, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 425, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Offer.ID, second.Offer.ID, "editing must keep the offer identifier")
	assert.Equal(t, 425.0, second.Offer.Amount)
	assert.Equal(t, models.OfferPending, second.Offer.Status)
	assert.Equal(t, "Buyer edited the offer", second.Message.Text)

	offers, err := f.store.Offers().GetOffersByChat(ctx, f.chat.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1, "edit must not create a second offer row")
	assert.Equal(t, 425.0, offers[0].Amount)
}

func TestMakeOffer_EditClearsMessage(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	note := "initial note"
	_, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, &note)
	require.NoError(t, err)

	act, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 410, nil)
	require.NoError(t, err)
	assert.Nil(t, act.Offer.Message, "an edit without a note replaces the old note")
}

func TestMakeOffer_RejectsNonPositiveAmount(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, -5, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	offers, err := f.store.Offers().GetOffersByChat(ctx, f.chat.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestMakeOffer_BuyerOnly(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.MakeOffer(ctx, f.seller, f.chat.ID, 400, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	stranger := uuid.New()
	_, err = f.engine.MakeOffer(ctx, stranger, f.chat.ID, 400, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMakeOffer_ChatNotFound(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.MakeOffer(context.Background(), f.buyer, uuid.New(), 400, nil)
	assert.ErrorIs(t, err, store.ErrChatNotFound)
}

func TestAccept_ResolvesOfferAndReservesListing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	act, err := f.engine.Accept(ctx, f.seller, made.Offer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OfferAccepted, act.Offer.Status)
	require.NotNil(t, act.Offer.ResolvedAt)
	assert.Equal(t, "Seller accepted the offer", act.Message.Text)

	listing, err := f.store.Listings().GetListingByID(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingReserved, listing.Status)

	chat, err := f.store.Chats().GetChatByID(ctx, f.chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seller accepted the offer", chat.LastMessageText)
}

func TestDecline_ResolvesOfferWithoutTouchingListing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	act, err := f.engine.Decline(ctx, f.seller, made.Offer.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OfferDeclined, act.Offer.Status)
	assert.Equal(t, "Seller declined the offer", act.Message.Text)

	listing, err := f.store.Listings().GetListingByID(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, listing.Status)
}

func TestCancel_BuyerWithdrawsPendingOffer(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	act, err := f.engine.Cancel(ctx, f.buyer, made.Offer.ID)
	require.NoError(t, err)

	// Cancellation reuses the declined status; the message carries the intent.
	assert.Equal(t, models.OfferDeclined, act.Offer.Status)
	assert.Equal(t, "Buyer cancelled the offer", act.Message.Text)

	listing, err := f.store.Listings().GetListingByID(ctx, f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingActive, listing.Status)
}

func TestTransitions_RoleMatrix(t *testing.T) {
	cases := []struct {
		name string
		fn   func(f *engineFixture, offerID uuid.UUID) error
	}{
		{"buyer cannot accept", func(f *engineFixture, id uuid.UUID) error {
			_, err := f.engine.Accept(context.Background(), f.buyer, id)
			return err
		}},
		{"buyer cannot decline", func(f *engineFixture, id uuid.UUID) error {
			_, err := f.engine.Decline(context.Background(), f.buyer, id)
			return err
		}},
		{"seller cannot cancel", func(f *engineFixture, id uuid.UUID) error {
			_, err := f.engine.Cancel(context.Background(), f.seller, id)
			return err
		}},
		{"stranger cannot accept", func(f *engineFixture, id uuid.UUID) error {
			_, err := f.engine.Accept(context.Background(), uuid.New(), id)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t)
			made, err := f.engine.MakeOffer(context.Background(), f.buyer, f.chat.ID, 400, nil)
			require.NoError(t, err)

			assert.ErrorIs(t, tc.fn(f, made.Offer.ID), ErrUnauthorized)

			// The offer must still be pending after the rejected attempt.
			off, err := f.store.Offers().GetOfferByID(context.Background(), made.Offer.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OfferPending, off.Status)
		})
	}
}

func TestTransitions_TerminalOfferStaysTerminal(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)
	_, err = f.engine.Accept(ctx, f.seller, made.Offer.ID)
	require.NoError(t, err)

	_, err = f.engine.Decline(ctx, f.seller, made.Offer.ID)
	assert.ErrorIs(t, err, ErrOfferNotPending)

	_, err = f.engine.Cancel(ctx, f.buyer, made.Offer.ID)
	assert.ErrorIs(t, err, ErrOfferNotPending)

	off, err := f.store.Offers().GetOfferByID(ctx, made.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, off.Status)
}

func TestMakeOffer_AfterResolutionCreatesNewOffer(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)
	_, err = f.engine.Decline(ctx, f.seller, first.Offer.ID)
	require.NoError(t, err)

	second, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 380, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Offer.ID, second.Offer.ID)
	assert.Equal(t, "Buyer made an offer", second.Message.Text)

	offers, err := f.store.Offers().GetOffersByChat(ctx, f.chat.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 2)
}

func TestAccept_RollsBackWhenListingMissing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// A chat referencing a listing that no longer exists: the accept must
	// fail atomically, leaving the offer pending and the log untouched.
	ghostChat := &models.Chat{
		ID:            uuid.New(),
		ListingID:     uuid.New(),
		BuyerID:       f.buyer,
		SellerID:      f.seller,
		LastMessageAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.Chats().CreateChat(ctx, ghostChat))

	made, err := f.engine.MakeOffer(ctx, f.buyer, ghostChat.ID, 100, nil)
	require.NoError(t, err)

	_, err = f.engine.Accept(ctx, f.seller, made.Offer.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrListingNotFound)

	off, err := f.store.Offers().GetOfferByID(ctx, made.Offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferPending, off.Status, "failed accept must not leave a partial resolution")

	msgs, err := f.store.Messages().GetMessagesByChatID(ctx, ghostChat.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "only the make-offer activity may remain after rollback")
}

func TestConcurrentResolution_ExactlyOneWins(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.engine.Accept(ctx, f.seller, made.Offer.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.engine.Decline(ctx, f.seller, made.Offer.ID)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrOfferNotPending)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one of two racing transitions may commit")

	off, err := f.store.Offers().GetOfferByID(ctx, made.Offer.ID)
	require.NoError(t, err)
	assert.True(t, off.Status.Terminal())
}

func TestActiveOffer(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	view, err := f.engine.ActiveOffer(ctx, f.buyer, f.chat.ID)
	require.NoError(t, err)
	assert.Nil(t, view, "no offer yet means a nil view, not an error")

	made, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	buyerView, err := f.engine.ActiveOffer(ctx, f.buyer, f.chat.ID)
	require.NoError(t, err)
	require.NotNil(t, buyerView)
	assert.Equal(t, made.Offer.ID, buyerView.ID)
	assert.True(t, buyerView.IsBuyer)
	assert.False(t, buyerView.IsSeller)

	sellerView, err := f.engine.ActiveOffer(ctx, f.seller, f.chat.ID)
	require.NoError(t, err)
	assert.True(t, sellerView.IsSeller)

	// The card keeps showing the latest offer after it resolves.
	_, err = f.engine.Decline(ctx, f.seller, made.Offer.ID)
	require.NoError(t, err)
	view, err = f.engine.ActiveOffer(ctx, f.buyer, f.chat.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, models.OfferDeclined, view.Status)

	_, err = f.engine.ActiveOffer(ctx, uuid.New(), f.chat.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestChatOffers_NewestFirst(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)
	_, err = f.engine.Decline(ctx, f.seller, first.Offer.ID)
	require.NoError(t, err)
	second, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 380, nil)
	require.NoError(t, err)

	views, err := f.engine.ChatOffers(ctx, f.buyer, f.chat.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.Offer.ID, views[0].ID)
	assert.Equal(t, first.Offer.ID, views[1].ID)

	_, err = f.engine.ChatOffers(ctx, uuid.New(), f.chat.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestOfferActivity_NotCountedAsUnread(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.MakeOffer(ctx, f.buyer, f.chat.ID, 400, nil)
	require.NoError(t, err)

	count, err := f.store.Messages().GetUnreadCountForChat(ctx, f.chat.ID, f.seller)
	require.NoError(t, err)
	assert.Zero(t, count)
}
