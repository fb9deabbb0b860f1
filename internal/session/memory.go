package session

import (
	"context"
	"sync"
)

// MemoryStore 内存会话存储，用于测试与本地开发
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get 读取会话键，缺失时返回默认值
func (s *MemoryStore) Get(_ context.Context, sessionID, key, def string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.values[sessionID+":"+key]
	if !ok {
		return def, nil
	}
	return val, nil
}

// Set 写入会话键
func (s *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[sessionID+":"+key] = value
	s.writes++
	return nil
}

// Delete 删除会话键
func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, sessionID+":"+key)
	s.writes++
	return nil
}

// Writes 返回累计写操作次数（供测试断言）
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
