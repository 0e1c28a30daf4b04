package queue

import "sync"

// PayloadStore holds upload bytes between submission and processing. Each
// payload is written once and taken once.
type PayloadStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewPayloadStore creates an empty store.
func NewPayloadStore() *PayloadStore {
	return &PayloadStore{data: make(map[string][]byte)}
}

// Put stores data for id.
func (s *PayloadStore) Put(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = data
}

// Take removes and returns the payload for id.
func (s *PayloadStore) Take(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[id]
	delete(s.data, id)
	return d, ok
}

// Len returns the number of stored payloads.
func (s *PayloadStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
