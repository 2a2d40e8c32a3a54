package iam

import (
	"context"
	"sync"

	"github.com/tenantrx/recordsapi/internal/auth"
	"github.com/tenantrx/recordsapi/internal/db/models"
)

// mockPermissionStore records queries and returns canned contexts.
type mockPermissionStore struct {
	mu      sync.Mutex
	queries []ContextQuery
	result  *auth.PermissionContext
	err     error
}

func (m *mockPermissionStore) LoadContext(ctx context.Context, q ContextQuery) (*auth.PermissionContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockPermissionStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockClientRegistry is an in-memory authorized-client registry.
type mockClientRegistry struct {
	mu       sync.Mutex
	searched int
	clients  map[string][]models.AuthorizedClient // tenant/client → rows
	err      error
}

func (m *mockClientRegistry) Search(ctx context.Context, tenantID, clientID string) ([]models.AuthorizedClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched++
	if m.err != nil {
		return nil, m.err
	}
	return m.clients[tenantID+"/"+clientID], nil
}

func (m *mockClientRegistry) authorize(tenantID, clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients == nil {
		m.clients = map[string][]models.AuthorizedClient{}
	}
	key := tenantID + "/" + clientID
	m.clients[key] = append(m.clients[key], models.AuthorizedClient{ID: key, ClientID: clientID})
}

func (m *mockClientRegistry) searches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searched
}

// mockLoginValidator fails for the listed user ids.
type mockLoginValidator struct {
	validated int
	reject    map[int64]error
}

func (m *mockLoginValidator) Validate(ctx context.Context, tenantID string, userID int64) error {
	m.validated++
	return m.reject[userID]
}
