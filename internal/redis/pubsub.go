package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const ns = "storeaway:v1"

func ChannelListingsChanged() string {
	return ns + ":listings:changed"
}

// ListingsPubSub is the change-notification feed UI clients subscribe to for
// live refresh. The booking core only publishes; it never subscribes.
type ListingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewListingsPubSub(rdb *redis.Client) *ListingsPubSub {
	return &ListingsPubSub{
		rdb:     rdb,
		channel: ChannelListingsChanged(),
	}
}

type listingChangedMsg struct {
	Type      string `json:"type"`
	ListingID string `json:"listing_id"`
	TsUnix    int64  `json:"ts_unix"`
}

func (p *ListingsPubSub) PublishListingChanged(ctx context.Context, listingID string) error {
	msg := listingChangedMsg{
		Type:      "listing_changed",
		ListingID: listingID,
		TsUnix:    time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *ListingsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, listingID string)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev listingChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.ListingID != "" {
				handler(ctx, ev.ListingID)
			}
		}
	}
}
