package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradenest-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests. A single mutex serializes
// transactions; WithinTx runs against a deep copy of the state that is swapped
// in only on success, so a failed operation leaves prior state untouched.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

type memoryState struct {
	users          map[uuid.UUID]models.User
	listings       map[uuid.UUID]models.Listing
	chats          map[uuid.UUID]models.Chat
	messages       map[uuid.UUID]models.Message
	messagesByChat map[uuid.UUID][]uuid.UUID
	offers         map[uuid.UUID]models.Offer
	offersByChat   map[uuid.UUID][]uuid.UUID
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:          make(map[uuid.UUID]models.User),
		listings:       make(map[uuid.UUID]models.Listing),
		chats:          make(map[uuid.UUID]models.Chat),
		messages:       make(map[uuid.UUID]models.Message),
		messagesByChat: make(map[uuid.UUID][]uuid.UUID),
		offers:         make(map[uuid.UUID]models.Offer),
		offersByChat:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (st *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.listings {
		c.listings[k] = v
	}
	for k, v := range st.chats {
		c.chats[k] = v
	}
	for k, v := range st.messages {
		c.messages[k] = v
	}
	for k, v := range st.messagesByChat {
		c.messagesByChat[k] = append([]uuid.UUID(nil), v...)
	}
	for k, v := range st.offers {
		c.offers[k] = v
	}
	for k, v := range st.offersByChat {
		c.offersByChat[k] = append([]uuid.UUID(nil), v...)
	}
	return c
}

// memAccessor routes an operation either at the live state (locking per call)
// or at a transaction's private clone (lock already held by WithinTx).
type memAccessor struct {
	store *MemoryStore
	tx    *memoryState
}

func (a memAccessor) run(fn func(st *memoryState) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

func (m *MemoryStore) accessor() memAccessor { return memAccessor{store: m} }

func (m *MemoryStore) Users() UserStore       { return memUserStore{m.accessor()} }
func (m *MemoryStore) Listings() ListingStore { return memListingStore{m.accessor()} }
func (m *MemoryStore) Chats() ChatStore       { return memChatStore{m.accessor()} }
func (m *MemoryStore) Messages() MessageStore { return memMessageStore{m.accessor()} }
func (m *MemoryStore) Offers() OfferStore     { return memOfferStore{m.accessor()} }

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := m.state.clone()
	if err := fn(memTxStore{state: clone}); err != nil {
		return err
	}
	m.state = clone
	return nil
}

type memTxStore struct {
	state *memoryState
}

func (t memTxStore) accessor() memAccessor { return memAccessor{tx: t.state} }

func (t memTxStore) Users() UserStore       { return memUserStore{t.accessor()} }
func (t memTxStore) Listings() ListingStore { return memListingStore{t.accessor()} }
func (t memTxStore) Chats() ChatStore       { return memChatStore{t.accessor()} }
func (t memTxStore) Messages() MessageStore { return memMessageStore{t.accessor()} }
func (t memTxStore) Offers() OfferStore     { return memOfferStore{t.accessor()} }

// --- users ---

type memUserStore struct{ a memAccessor }

func (s memUserStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.a.run(func(st *memoryState) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return ErrEmailExists
			}
			if existing.Username == user.Username {
				return ErrUsernameExists
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (s memUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := s.a.run(func(st *memoryState) error {
		for _, u := range st.users {
			if u.Email == email {
				cp := u
				out = &cp
				return nil
			}
		}
		return ErrUserNotFound
	})
	return out, err
}

func (s memUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := s.a.run(func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrUserNotFound
		}
		cp := u
		out = &cp
		return nil
	})
	return out, err
}

func (s memUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, displayName, bio, avatarURL *string) (*models.User, error) {
	var out *models.User
	err := s.a.run(func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrUserNotFound
		}
		if displayName != nil {
			u.DisplayName = *displayName
		}
		if bio != nil {
			u.Bio = *bio
		}
		if avatarURL != nil {
			u.AvatarURL = *avatarURL
		}
		u.UpdatedAt = time.Now()
		st.users[id] = u
		cp := u
		out = &cp
		return nil
	})
	return out, err
}

// --- listings ---

type memListingStore struct{ a memAccessor }

func (s memListingStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	return s.a.run(func(st *memoryState) error {
		st.listings[listing.ID] = *listing
		return nil
	})
}

func (s memListingStore) GetListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var out *models.Listing
	err := s.a.run(func(st *memoryState) error {
		l, ok := st.listings[id]
		if !ok {
			return ErrListingNotFound
		}
		cp := l
		out = &cp
		return nil
	})
	return out, err
}

func (s memListingStore) ListListingsBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error) {
	out := make([]*models.Listing, 0)
	err := s.a.run(func(st *memoryState) error {
		for _, l := range st.listings {
			if l.SellerID == sellerID {
				cp := l
				out = append(out, &cp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (s memListingStore) UpdateListingStatus(ctx context.Context, id uuid.UUID, status models.ListingStatus, now time.Time) error {
	return s.a.run(func(st *memoryState) error {
		l, ok := st.listings[id]
		if !ok {
			return ErrListingNotFound
		}
		l.Status = status
		l.UpdatedAt = now
		st.listings[id] = l
		return nil
	})
}

// --- chats ---

type memChatStore struct{ a memAccessor }

func (s memChatStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	return s.a.run(func(st *memoryState) error {
		for _, existing := range st.chats {
			if existing.ListingID == chat.ListingID && existing.BuyerID == chat.BuyerID {
				return ErrChatExists
			}
		}
		st.chats[chat.ID] = *chat
		return nil
	})
}

func (s memChatStore) getChat(id uuid.UUID) (*models.Chat, error) {
	var out *models.Chat
	err := s.a.run(func(st *memoryState) error {
		c, ok := st.chats[id]
		if !ok {
			return ErrChatNotFound
		}
		cp := c
		out = &cp
		return nil
	})
	return out, err
}

func (s memChatStore) GetChatByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return s.getChat(id)
}

func (s memChatStore) GetChatForUpdate(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	// The store mutex already serializes transactions.
	return s.getChat(id)
}

func (s memChatStore) GetChatByListingAndBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*models.Chat, error) {
	var out *models.Chat
	err := s.a.run(func(st *memoryState) error {
		for _, c := range st.chats {
			if c.ListingID == listingID && c.BuyerID == buyerID {
				cp := c
				out = &cp
				return nil
			}
		}
		return ErrChatNotFound
	})
	return out, err
}

func (s memChatStore) GetUserChats(ctx context.Context, userID uuid.UUID) ([]*models.Chat, error) {
	out := make([]*models.Chat, 0)
	err := s.a.run(func(st *memoryState) error {
		for _, c := range st.chats {
			if c.BuyerID == userID || c.SellerID == userID {
				cp := c
				out = append(out, &cp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
		return nil
	})
	return out, err
}

func (s memChatStore) TouchChat(ctx context.Context, id uuid.UUID, previewText string, now time.Time) error {
	return s.a.run(func(st *memoryState) error {
		c, ok := st.chats[id]
		if !ok {
			return ErrChatNotFound
		}
		c.LastMessageAt = now
		c.LastMessageText = previewText
		c.UpdatedAt = now
		st.chats[id] = c
		return nil
	})
}

// --- messages ---

type memMessageStore struct{ a memAccessor }

func (s memMessageStore) CreateMessage(ctx context.Context, message *models.Message) error {
	return s.a.run(func(st *memoryState) error {
		st.messages[message.ID] = *message
		st.messagesByChat[message.ChatID] = append(st.messagesByChat[message.ChatID], message.ID)
		return nil
	})
}

func (s memMessageStore) GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	out := make([]*models.Message, 0)
	err := s.a.run(func(st *memoryState) error {
		// Insertion order is creation order for a chat's log.
		for _, id := range st.messagesByChat[chatID] {
			msg := st.messages[id]
			out = append(out, &msg)
		}
		return nil
	})
	return out, err
}

func (s memMessageStore) MarkMessagesRead(ctx context.Context, chatID, readerID uuid.UUID) error {
	return s.a.run(func(st *memoryState) error {
		for _, id := range st.messagesByChat[chatID] {
			msg := st.messages[id]
			if msg.SenderID != readerID && !msg.IsRead {
				msg.IsRead = true
				st.messages[id] = msg
			}
		}
		return nil
	})
}

func (s memMessageStore) GetUnreadCountForChat(ctx context.Context, chatID, readerID uuid.UUID) (int, error) {
	count := 0
	err := s.a.run(func(st *memoryState) error {
		for _, id := range st.messagesByChat[chatID] {
			msg := st.messages[id]
			if msg.SenderID != readerID && !msg.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (s memMessageStore) GetUnreadCountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	count := 0
	err := s.a.run(func(st *memoryState) error {
		for _, msg := range st.messages {
			chat, ok := st.chats[msg.ChatID]
			if !ok {
				continue
			}
			if chat.RoleOf(userID) == "" || msg.SenderID == userID || msg.IsRead {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

// --- offers ---

type memOfferStore struct{ a memAccessor }

func (s memOfferStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return s.a.run(func(st *memoryState) error {
		st.offers[offer.ID] = *offer
		st.offersByChat[offer.ChatID] = append(st.offersByChat[offer.ChatID], offer.ID)
		return nil
	})
}

func (s memOfferStore) getOffer(id uuid.UUID) (*models.Offer, error) {
	var out *models.Offer
	err := s.a.run(func(st *memoryState) error {
		o, ok := st.offers[id]
		if !ok {
			return ErrOfferNotFound
		}
		cp := o
		out = &cp
		return nil
	})
	return out, err
}

func (s memOfferStore) GetOfferByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return s.getOffer(id)
}

func (s memOfferStore) GetOfferForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return s.getOffer(id)
}

func (s memOfferStore) GetPendingOfferForUpdate(ctx context.Context, chatID uuid.UUID) (*models.Offer, error) {
	var out *models.Offer
	err := s.a.run(func(st *memoryState) error {
		for _, id := range st.offersByChat[chatID] {
			o := st.offers[id]
			if o.Status == models.OfferPending {
				out = &o
				return nil
			}
		}
		return ErrOfferNotFound
	})
	return out, err
}

func (s memOfferStore) UpdatePendingOffer(ctx context.Context, id uuid.UUID, amount float64, message *string, now time.Time) error {
	return s.a.run(func(st *memoryState) error {
		o, ok := st.offers[id]
		if !ok || o.Status != models.OfferPending {
			return ErrOfferNotFound
		}
		o.Amount = amount
		o.Message = message
		o.UpdatedAt = now
		st.offers[id] = o
		return nil
	})
}

func (s memOfferStore) ResolveOffer(ctx context.Context, id uuid.UUID, status models.OfferStatus, now time.Time) error {
	return s.a.run(func(st *memoryState) error {
		o, ok := st.offers[id]
		if !ok || o.Status != models.OfferPending {
			return ErrOfferNotFound
		}
		resolved := now
		o.Status = status
		o.ResolvedAt = &resolved
		o.UpdatedAt = now
		st.offers[id] = o
		return nil
	})
}

func (s memOfferStore) GetLatestOfferByChat(ctx context.Context, chatID uuid.UUID) (*models.Offer, error) {
	var out *models.Offer
	err := s.a.run(func(st *memoryState) error {
		ids := st.offersByChat[chatID]
		if len(ids) == 0 {
			return ErrOfferNotFound
		}
		o := st.offers[ids[len(ids)-1]]
		out = &o
		return nil
	})
	return out, err
}

func (s memOfferStore) GetOffersByChat(ctx context.Context, chatID uuid.UUID) ([]*models.Offer, error) {
	out := make([]*models.Offer, 0)
	err := s.a.run(func(st *memoryState) error {
		ids := st.offersByChat[chatID]
		for i := len(ids) - 1; i >= 0; i-- {
			o := st.offers[ids[i]]
			out = append(out, &o)
		}
		return nil
	})
	return out, err
}
