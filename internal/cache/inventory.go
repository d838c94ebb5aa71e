package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	DiscoveryKeyPrefix = "discover:%d"
	MatchedIDsPrefix   = "user:%d:matched"
	DecidedIDsPrefix   = "user:%d:decided"
	UnreadKeyPrefix    = "user:%d:unread"
)

const (
	UserTTL      = 5 * time.Minute
	DiscoveryTTL = 2 * time.Minute
	EdgeSetTTL   = 2 * time.Minute
	UnreadTTL    = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func DiscoveryKey(userID uint) string {
	return fmt.Sprintf(DiscoveryKeyPrefix, userID)
}

func MatchedIDsKey(userID uint) string {
	return fmt.Sprintf(MatchedIDsPrefix, userID)
}

func DecidedIDsKey(userID uint) string {
	return fmt.Sprintf(DecidedIDsPrefix, userID)
}

func UnreadKey(userID uint) string {
	return fmt.Sprintf(UnreadKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, DiscoveryKey(userID))
}

// InvalidateSwipeState drops the cached decided/matched sets after a swipe
// or match so the next discovery read sees the new edge.
func InvalidateSwipeState(ctx context.Context, userID uint) {
	Invalidate(ctx, DecidedIDsKey(userID))
	Invalidate(ctx, MatchedIDsKey(userID))
	Invalidate(ctx, DiscoveryKey(userID))
}

func InvalidateUnread(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadKey(userID))
}
