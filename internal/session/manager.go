package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/circuitbreaker"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
)

const (
	sessionKeyPrefix = "outreach:session:"
	memoryKeyPrefix  = "outreach:lead_memory:"
)

// Manager handles sessions and the cross-session lead memory on a Redis
// backend, with a small local cache in front.
type Manager struct {
	client *circuitbreaker.RedisWrapper
	logger *zap.Logger
	ttl    time.Duration

	mu          sync.RWMutex
	localCache  map[string]*Session
	cacheAccess map[string]time.Time
	maxSessions int
}

// NewManager connects to Redis and verifies the connection.
func NewManager(redisAddr, password string, db int, logger *zap.Logger) (*Manager, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	client := circuitbreaker.NewRedisWrapper(redisClient, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Manager{
		client:      client,
		logger:      logger,
		ttl:         24 * time.Hour,
		localCache:  make(map[string]*Session),
		cacheAccess: make(map[string]time.Time),
		maxSessions: 10000,
	}, nil
}

// CreateSession creates and persists a new session.
func (m *Manager) CreateSession(ctx context.Context, userID string, metadata map[string]interface{}) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Metadata:  metadata,
		Context:   make(map[string]interface{}),
		History:   make([]Message, 0),
	}

	if err := m.saveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[session.ID] = session
	m.cacheAccess[session.ID] = now
	m.evictLocked()
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created new session",
		zap.String("session_id", session.ID),
		zap.String("user_id", userID),
	)
	metrics.SessionsCreated.Inc()

	return session, nil
}

// GetSession fetches a session from the local cache or Redis.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	cached, ok := m.localCache[sessionID]
	m.mu.RUnlock()
	if ok {
		if cached.IsExpired() {
			return nil, ErrSessionExpired
		}
		m.mu.Lock()
		m.cacheAccess[sessionID] = time.Now()
		m.mu.Unlock()
		return cached, nil
	}

	data, err := m.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	m.mu.Lock()
	m.localCache[sessionID] = &session
	m.cacheAccess[sessionID] = time.Now()
	m.evictLocked()
	m.mu.Unlock()

	return &session, nil
}

// UpdateSession persists a modified session.
func (m *Manager) UpdateSession(ctx context.Context, session *Session) error {
	session.UpdatedAt = time.Now()
	if err := m.saveSession(ctx, session); err != nil {
		return err
	}
	m.mu.Lock()
	m.localCache[session.ID] = session
	m.cacheAccess[session.ID] = time.Now()
	m.mu.Unlock()
	return nil
}

// DeleteSession removes a session from Redis and the cache.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.mu.Lock()
	delete(m.localCache, sessionID)
	delete(m.cacheAccess, sessionID)
	m.mu.Unlock()
	return nil
}

// SaveLeadMemory remembers a research result so later sessions can recall it.
// Memories are keyed by normalized lead name and do not expire with sessions.
func (m *Manager) SaveLeadMemory(ctx context.Context, mem *LeadMemory) error {
	if mem.SavedAt.IsZero() {
		mem.SavedAt = time.Now()
	}
	data, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("failed to encode lead memory: %w", err)
	}
	key := memoryKeyPrefix + memoryKey(mem.LeadName)
	if err := m.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save lead memory: %w", err)
	}
	metrics.LeadMemoriesSaved.Inc()
	m.logger.Info("Saved lead memory", zap.String("lead", mem.LeadName))
	return nil
}

// GetLeadMemory recalls the remembered research for a lead, if any.
func (m *Manager) GetLeadMemory(ctx context.Context, leadName string) (*LeadMemory, error) {
	data, err := m.client.Get(ctx, memoryKeyPrefix+memoryKey(leadName)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read lead memory: %w", err)
	}
	var mem LeadMemory
	if err := json.Unmarshal([]byte(data), &mem); err != nil {
		return nil, fmt.Errorf("failed to decode lead memory: %w", err)
	}
	return &mem, nil
}

// SearchLeadMemories scans remembered leads and returns those matching every
// keyword in the query, most recent first.
func (m *Manager) SearchLeadMemories(ctx context.Context, query string, limit int) ([]*LeadMemory, error) {
	var results []*LeadMemory
	var cursor uint64
	for {
		keys, next, err := m.client.Scan(ctx, cursor, memoryKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead memories: %w", err)
		}
		for _, key := range keys {
			data, err := m.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var mem LeadMemory
			if err := json.Unmarshal([]byte(data), &mem); err != nil {
				continue
			}
			if mem.Matches(query) {
				results = append(results, &mem)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SavedAt.After(results[j].SavedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Ping verifies the Redis connection; used by health checks.
func (m *Manager) Ping(ctx context.Context) error { return m.client.Ping(ctx).Err() }

// Close releases the Redis connection.
func (m *Manager) Close() error { return m.client.Close() }

func (m *Manager) saveSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return m.client.Set(ctx, sessionKeyPrefix+session.ID, data, ttl).Err()
}

// evictLocked drops least-recently-used sessions past the cache bound.
// Caller holds m.mu.
func (m *Manager) evictLocked() {
	for len(m.localCache) > m.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, at := range m.cacheAccess {
			if oldestID == "" || at.Before(oldest) {
				oldestID, oldest = id, at
			}
		}
		delete(m.localCache, oldestID)
		delete(m.cacheAccess, oldestID)
	}
}

func memoryKey(leadName string) string {
	return strings.ToLower(strings.Join(strings.Fields(leadName), "_"))
}
