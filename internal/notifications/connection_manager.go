package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceSetKey       = "presence:online"
	presenceSeenPrefix   = "presence:seen:"
	presenceSeenTTL      = 90 * time.Second
	presenceOfflineGrace = 5 * time.Second
	presenceReapEvery    = 60 * time.Second
)

// ConnectionManagerConfig tunes presence timing. Zero values fall back to
// the package defaults.
type ConnectionManagerConfig struct {
	SeenTTL            time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
	OnUserOnline       func(userID uint)
	OnUserOffline      func(userID uint)
}

// ConnectionManager tracks which users have live sockets on this instance and
// mirrors that into a shared Redis set so presence is visible across
// instances. Offline transitions are delayed by a grace window so a page
// refresh does not flap a user's status.
type ConnectionManager struct {
	rdb *redis.Client

	mu          sync.RWMutex
	devices     map[uint]int
	graceTimers map[uint]*time.Timer
	wentOffline map[uint]bool

	seenTTL      time.Duration
	offlineGrace time.Duration
	reapEvery    time.Duration

	onUserOnline  func(userID uint)
	onUserOffline func(userID uint)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager. With a Redis client it also starts
// a background reaper that evicts entries left behind by crashed instances.
func NewConnectionManager(rdb *redis.Client, cfg ConnectionManagerConfig) *ConnectionManager {
	m := &ConnectionManager{
		rdb:           rdb,
		devices:       make(map[uint]int),
		graceTimers:   make(map[uint]*time.Timer),
		wentOffline:   make(map[uint]bool),
		seenTTL:       presenceSeenTTL,
		offlineGrace:  presenceOfflineGrace,
		reapEvery:     presenceReapEvery,
		onUserOnline:  cfg.OnUserOnline,
		onUserOffline: cfg.OnUserOffline,
		stopCh:        make(chan struct{}),
	}
	if cfg.SeenTTL > 0 {
		m.seenTTL = cfg.SeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		m.offlineGrace = cfg.OfflineGracePeriod
	}
	if cfg.ReaperInterval > 0 {
		m.reapEvery = cfg.ReaperInterval
	}

	if m.rdb != nil {
		go m.reaperLoop()
	}
	return m
}

func (m *ConnectionManager) SetCallbacks(onOnline, onOffline func(userID uint)) {
	m.mu.Lock()
	m.onUserOnline = onOnline
	m.onUserOffline = onOffline
	m.mu.Unlock()
}

func (m *ConnectionManager) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.offlineGrace = d
	m.mu.Unlock()
}

// Stop halts the reaper and cancels any pending offline timers.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for userID, t := range m.graceTimers {
			t.Stop()
			delete(m.graceTimers, userID)
		}
		m.mu.Unlock()
	})
}

// Register records a new socket for the user. The online callback fires only
// on the offline-to-online transition, not for additional devices.
func (m *ConnectionManager) Register(ctx context.Context, userID uint) {
	wasOnline := m.IsOnline(ctx, userID)

	m.mu.Lock()
	if t, ok := m.graceTimers[userID]; ok {
		t.Stop()
		delete(m.graceTimers, userID)
	}
	m.devices[userID]++
	m.wentOffline[userID] = false
	m.mu.Unlock()

	m.Touch(ctx, userID)
	if !wasOnline {
		m.emitOnline(userID)
	}
}

// Touch refreshes the user's Redis presence. Called on register and from the
// ping loop so the last-seen key outlives idle periods.
func (m *ConnectionManager) Touch(ctx context.Context, userID uint) {
	if m.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	if err := m.rdb.SAdd(ctx, presenceSetKey, uid).Err(); err != nil {
		log.Printf("presence: SADD failed for user %d: %v", userID, err)
	}
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	if err := m.rdb.SetEx(ctx, presenceSeenKey(userID), stamp, m.seenTTL).Err(); err != nil {
		log.Printf("presence: SETEX failed for user %d: %v", userID, err)
	}
}

// Unregister drops one socket. When the last one goes, the offline decision
// is deferred by the grace window so a reconnect can cancel it.
func (m *ConnectionManager) Unregister(ctx context.Context, userID uint) {
	m.mu.Lock()
	if n, ok := m.devices[userID]; ok {
		n--
		if n > 0 {
			m.devices[userID] = n
			m.mu.Unlock()
			return
		}
		delete(m.devices, userID)
	}

	if t, ok := m.graceTimers[userID]; ok {
		t.Stop()
	}
	m.graceTimers[userID] = time.AfterFunc(m.offlineGrace, func() {
		m.finalizeOffline(context.Background(), userID)
	})
	m.mu.Unlock()
}

// IsOnline checks local sockets first, then the shared last-seen key so
// users connected to another instance count too.
func (m *ConnectionManager) IsOnline(ctx context.Context, userID uint) bool {
	m.mu.RLock()
	local := m.devices[userID] > 0
	m.mu.RUnlock()
	if local {
		return true
	}
	if m.rdb == nil {
		return false
	}
	return m.isFresh(ctx, userID)
}

// GetOnlineUserIDs returns the cluster-wide online set, pruning members
// whose last-seen key expired, plus any local connections Redis missed.
func (m *ConnectionManager) GetOnlineUserIDs(ctx context.Context) []uint {
	local := m.localUserIDs()
	if m.rdb == nil {
		return local
	}

	members, err := m.rdb.SMembers(ctx, presenceSetKey).Result()
	if err != nil {
		return local
	}

	seen := make(map[uint]struct{}, len(members)+len(local))
	out := make([]uint, 0, len(members)+len(local))
	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			continue
		}
		userID := uint(id64)
		if !m.isFresh(ctx, userID) {
			_ = m.rdb.SRem(ctx, presenceSetKey, raw).Err()
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		out = append(out, userID)
	}
	for _, userID := range local {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		out = append(out, userID)
	}
	return out
}

// reapOnce removes online-set members whose last-seen key is gone and emits
// offline for any of them without a local socket.
func (m *ConnectionManager) reapOnce(ctx context.Context) {
	if m.rdb == nil {
		return
	}
	members, err := m.rdb.SMembers(ctx, presenceSetKey).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id64, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			continue
		}
		userID := uint(id64)
		if m.isFresh(ctx, userID) {
			continue
		}

		_ = m.rdb.SRem(ctx, presenceSetKey, raw).Err()

		m.mu.RLock()
		hasLocal := m.devices[userID] > 0
		m.mu.RUnlock()
		if !hasLocal {
			m.emitOffline(userID)
		}
	}
}

func (m *ConnectionManager) reaperLoop() {
	ticker := time.NewTicker(m.reapEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce(context.Background())
		}
	}
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, userID uint) {
	m.mu.Lock()
	delete(m.graceTimers, userID)
	if m.devices[userID] > 0 {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.rdb != nil {
		// Another instance may have refreshed the key; the user is still online there.
		if m.isFresh(ctx, userID) {
			return
		}
		_ = m.rdb.SRem(ctx, presenceSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}

	m.emitOffline(userID)
}

func (m *ConnectionManager) isFresh(ctx context.Context, userID uint) bool {
	exists, err := m.rdb.Exists(ctx, presenceSeenKey(userID)).Result()
	return err == nil && exists > 0
}

func (m *ConnectionManager) emitOnline(userID uint) {
	m.mu.Lock()
	m.wentOffline[userID] = false
	cb := m.onUserOnline
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

// emitOffline is deduplicated so the reaper and a grace timer racing each
// other produce a single offline event.
func (m *ConnectionManager) emitOffline(userID uint) {
	m.mu.Lock()
	if m.wentOffline[userID] {
		m.mu.Unlock()
		return
	}
	m.wentOffline[userID] = true
	cb := m.onUserOffline
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func (m *ConnectionManager) localUserIDs() []uint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint, 0, len(m.devices))
	for userID, n := range m.devices {
		if n > 0 {
			ids = append(ids, userID)
		}
	}
	return ids
}

func presenceSeenKey(userID uint) string {
	return presenceSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
