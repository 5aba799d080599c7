package provider

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

const (
	connectTimeout    = 30 * time.Second
	disconnectTimeout = 5 * time.Second
	dialogPageSize    = 100
	forumTopicLimit   = 100
)

// Telegram is a gotd-backed provider client bound to one account session.
type Telegram struct {
	client *telegram.Client
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[int64][]EventHandler

	ready  chan struct{}
	done   chan struct{}
	runErr error
	stop   context.CancelFunc
}

// NewTelegram builds a client over the given session storage. The client is
// inert until Connect.
func NewTelegram(apiID int, apiHash string, store session.Storage, logger *zap.Logger) *Telegram {
	t := &Telegram{
		logger:   logger,
		handlers: make(map[int64][]EventHandler),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewChannelMessage) error {
		t.dispatch(ctx, e, update.Message)
		return nil
	})
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, update *tg.UpdateNewMessage) error {
		t.dispatch(ctx, e, update.Message)
		return nil
	})

	t.client = telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: store,
		UpdateHandler:  dispatcher,
		Logger:         logger.Named("mtproto"),
	})

	return t
}

// Connect starts the MTProto run loop in the background and waits, bounded,
// for the session to come up authorized.
func (t *Telegram) Connect(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	t.stop = cancel

	go func() {
		err := t.client.Run(runCtx, func(ctx context.Context) error {
			status, err := t.client.Auth().Status(ctx)
			if err != nil {
				return err
			}
			if !status.Authorized {
				return ErrNotAuthorized
			}
			close(t.ready)
			<-ctx.Done()
			return ctx.Err()
		})
		t.runErr = err
		close(t.done)
	}()

	select {
	case <-t.ready:
		return nil
	case <-t.done:
		return t.runErr
	case <-time.After(connectTimeout):
		cancel()
		return ErrConnectTimeout
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (t *Telegram) Subscribe(sourceID int64, handler EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[sourceID] = append(t.handlers[sourceID], handler)
}

// Wait blocks until cancellation or connection failure. A context.Canceled
// run error after cancellation is reported as the context's error.
func (t *Telegram) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.runErr
	}
}

func (t *Telegram) Disconnect() error {
	if t.stop != nil {
		t.stop()
	}
	select {
	case <-t.done:
	case <-time.After(disconnectTimeout):
		t.logger.Warn("Timed out waiting for client run loop to exit")
	}
	return nil
}

func (t *Telegram) dispatch(ctx context.Context, e tg.Entities, msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		return
	}

	var sourceID int64
	switch peer := m.PeerID.(type) {
	case *tg.PeerChannel:
		sourceID = peer.ChannelID
	case *tg.PeerChat:
		sourceID = peer.ChatID
	default:
		return // private chats are not watchable sources
	}

	event := Event{
		SourceID:  sourceID,
		MessageID: m.ID,
		Text:      m.Message,
		Timestamp: time.Unix(int64(m.Date), 0),
	}

	if replyTo, ok := m.GetReplyTo(); ok {
		if header, ok := replyTo.(*tg.MessageReplyHeader); ok {
			event.AnchorID = int64(header.ReplyToMsgID)
			event.ForumTopic = header.ForumTopic
		}
	}

	if fromID, ok := m.GetFromID(); ok {
		if peerUser, ok := fromID.(*tg.PeerUser); ok {
			if user, ok := e.Users[peerUser.UserID]; ok {
				event.SenderFirstName = user.FirstName
				event.SenderLastName = user.LastName
				event.SenderUsername = user.Username
			}
		}
	}

	t.mu.Lock()
	handlers := t.handlers[sourceID]
	t.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, event)
	}
}

// Groups lists the user's dialogs classified into regular groups,
// supergroups (with forum topics resolved) and broadcast channels.
func (t *Telegram) Groups(ctx context.Context) ([]Group, error) {
	dialogs, err := t.client.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogPageSize,
	})
	if err != nil {
		return nil, err
	}

	var chats []tg.ChatClass
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		chats = d.Chats
	case *tg.MessagesDialogsSlice:
		chats = d.Chats
	default:
		t.logger.Warn("Unknown dialogs response", zap.String("type", dialogs.TypeName()))
		return nil, nil
	}

	var groups []Group
	for _, chat := range chats {
		switch c := chat.(type) {
		case *tg.Chat:
			groups = append(groups, Group{ID: c.ID, Title: c.Title, Type: "group"})
		case *tg.Channel:
			g := Group{ID: c.ID, Title: c.Title, IsForum: c.Forum}
			if hash, ok := c.GetAccessHash(); ok {
				g.AccessHash = hash
			}
			if username, ok := c.GetUsername(); ok && username != "" {
				g.Username = &username
			}
			if c.Broadcast {
				g.Type = "channel"
			} else {
				g.Type = "supergroup"
			}
			if c.Forum {
				topics, err := t.ForumTopics(ctx, g)
				if err != nil {
					t.logger.Warn("Failed to list forum topics",
						zap.Int64("channel_id", c.ID), zap.Error(err))
				} else {
					g.Topics = topics
				}
			}
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// ResolveGroup finds a dialog by title or public username, case-insensitive.
func (t *Telegram) ResolveGroup(ctx context.Context, name string) (*Group, error) {
	groups, err := t.Groups(ctx)
	if err != nil {
		return nil, err
	}

	for _, g := range groups {
		if strings.EqualFold(g.Title, name) {
			return &g, nil
		}
		if g.Username != nil && strings.EqualFold(*g.Username, name) {
			return &g, nil
		}
	}
	return nil, ErrGroupNotFound
}

// ForumTopics lists the topics of a forum supergroup.
func (t *Telegram) ForumTopics(ctx context.Context, group Group) ([]Topic, error) {
	res, err := t.client.API().ChannelsGetForumTopics(ctx, &tg.ChannelsGetForumTopicsRequest{
		Channel: &tg.InputChannel{ChannelID: group.ID, AccessHash: group.AccessHash},
		Limit:   forumTopicLimit,
	})
	if err != nil {
		return nil, err
	}

	var topics []Topic
	for _, tc := range res.Topics {
		if topic, ok := tc.(*tg.ForumTopic); ok {
			topics = append(topics, Topic{ID: int64(topic.ID), Title: topic.Title})
		}
	}
	return topics, nil
}

// ResolveTopic finds a forum topic by title, case-insensitive.
func (t *Telegram) ResolveTopic(ctx context.Context, group Group, title string) (*Topic, error) {
	topics, err := t.ForumTopics(ctx, group)
	if err != nil {
		return nil, err
	}
	for _, topic := range topics {
		if strings.EqualFold(topic.Title, title) {
			return &topic, nil
		}
	}
	return nil, ErrTopicNotFound
}
