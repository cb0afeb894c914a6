package backends

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/systmms/dotvault/internal/sshkey"
	"github.com/systmms/dotvault/pkg/backend"
)

// MockBackend is an in-memory backend for tests and dry runs. It mirrors
// the semantics of the real adapters: idempotent create/update, typed
// not-found errors, configurable auth state.
type MockBackend struct {
	mu sync.Mutex

	items map[string]string
	ids   map[string]string
	next  int

	// FailAuth makes every session operation fail, simulating a locked
	// vault.
	FailAuth bool

	// FailWrites makes create/update/delete return errors, simulating an
	// unreachable store.
	FailWrites bool

	// Calls counts operations by name for assertions.
	Calls map[string]int
}

// NewMockBackend creates an empty in-memory backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		items: make(map[string]string),
		ids:   make(map[string]string),
		Calls: make(map[string]int),
	}
}

// SetItem seeds vault content directly.
func (m *MockBackend) SetItem(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[name] = content
	if _, ok := m.ids[name]; !ok {
		m.next++
		m.ids[name] = fmt.Sprintf("mock-%04d", m.next)
	}
}

// Content returns the stored content and whether the item exists.
func (m *MockBackend) Content(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.items[name]
	return content, ok
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Init(ctx context.Context) error {
	m.count("init")
	return nil
}

func (m *MockBackend) LoginCheck(ctx context.Context, _ backend.Session) bool {
	m.count("loginCheck")
	return !m.FailAuth
}

func (m *MockBackend) AcquireSession(ctx context.Context) (backend.Session, error) {
	m.count("acquireSession")
	if m.FailAuth {
		return backend.Session{}, backend.AuthError{Backend: m.Name(), Message: "mock auth failure"}
	}
	return backend.Session{Token: "mock-session"}, nil
}

func (m *MockBackend) SyncRemote(ctx context.Context, _ backend.Session) {
	m.count("syncRemote")
}

func (m *MockBackend) GetItem(ctx context.Context, name string, _ backend.Session) (backend.Item, error) {
	m.count("getItem")
	m.mu.Lock()
	defer m.mu.Unlock()

	content, ok := m.items[name]
	if !ok {
		return backend.Item{}, backend.NotFoundError{Backend: m.Name(), Name: name}
	}

	itemType := backend.TypeFile
	if sshkey.HasPrivateKeyDelimiters(content) {
		itemType = backend.TypeSSHKey
	}
	return backend.Item{ID: m.ids[name], Name: name, Type: itemType, Content: content}, nil
}

func (m *MockBackend) GetContent(ctx context.Context, name string, sess backend.Session) (string, error) {
	item, err := m.GetItem(ctx, name, sess)
	if err != nil {
		return "", err
	}
	return item.Content, nil
}

func (m *MockBackend) ItemExists(ctx context.Context, name string, _ backend.Session) (bool, error) {
	m.count("itemExists")
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[name]
	return ok, nil
}

func (m *MockBackend) GetItemID(ctx context.Context, name string, _ backend.Session) (string, error) {
	m.count("getItemId")
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[name]
	if !ok {
		return "", backend.NotFoundError{Backend: m.Name(), Name: name}
	}
	return id, nil
}

func (m *MockBackend) ListItems(ctx context.Context, sess backend.Session) ([]backend.Item, error) {
	m.count("listItems")
	m.mu.Lock()
	names := make([]string, 0, len(m.items))
	for name := range m.items {
		names = append(names, name)
	}
	m.mu.Unlock()
	sort.Strings(names)

	items := make([]backend.Item, 0, len(names))
	for _, name := range names {
		item, err := m.GetItem(ctx, name, sess)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MockBackend) CreateItem(ctx context.Context, name, content string, _ backend.Session) error {
	m.count("createItem")
	if m.FailWrites {
		return fmt.Errorf("mock: store unreachable")
	}
	m.mu.Lock()
	existing, ok := m.items[name]
	m.mu.Unlock()
	if ok {
		if existing == content {
			return nil
		}
		return fmt.Errorf("item '%s' already exists with different content, use update", name)
	}
	m.SetItem(name, content)
	return nil
}

func (m *MockBackend) UpdateItem(ctx context.Context, name, content string, _ backend.Session) error {
	m.count("updateItem")
	if m.FailWrites {
		return fmt.Errorf("mock: store unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[name]; !ok {
		return backend.NotFoundError{Backend: m.Name(), Name: name}
	}
	m.items[name] = content
	return nil
}

func (m *MockBackend) DeleteItem(ctx context.Context, name string, _ backend.Session) error {
	m.count("deleteItem")
	if m.FailWrites {
		return fmt.Errorf("mock: store unreachable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[name]; !ok {
		return backend.NotFoundError{Backend: m.Name(), Name: name}
	}
	delete(m.items, name)
	delete(m.ids, name)
	return nil
}

func (m *MockBackend) HealthCheck(ctx context.Context, _ backend.Session) (backend.HealthReport, error) {
	m.count("healthCheck")
	m.mu.Lock()
	defer m.mu.Unlock()
	return backend.HealthReport{
		Backend:        m.Name(),
		ToolInstalled:  true,
		Authenticated:  !m.FailAuth,
		StoreReachable: !m.FailWrites,
		ItemCount:      len(m.items),
	}, nil
}

func (m *MockBackend) count(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[op]++
}
