package cache

import "sync"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionReload = "reload"
)

// ChangeListener is told about every committed write to a collection.
// Listeners run synchronously so a reader that follows a write sees it.
type ChangeListener interface {
	OnCollectionChange(collection, action string)
}

// ChangeListenerFunc adapts a function to ChangeListener.
type ChangeListenerFunc func(collection, action string)

func (f ChangeListenerFunc) OnCollectionChange(collection, action string) {
	f(collection, action)
}

// ChangeNotifier fans out collection change notifications
type ChangeNotifier struct {
	listeners []ChangeListener
	mu        sync.RWMutex
}

func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{
		listeners: make([]ChangeListener, 0),
	}
}

func (n *ChangeNotifier) AddListener(listener ChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, listener)
}

func (n *ChangeNotifier) Notify(collection, action string) {
	n.mu.RLock()
	listeners := append([]ChangeListener(nil), n.listeners...)
	n.mu.RUnlock()

	for _, listener := range listeners {
		listener.OnCollectionChange(collection, action)
	}
}

// CacheAwareManager drops a collection's snapshot whenever it is written.
type CacheAwareManager struct {
	*Manager
	notifier *ChangeNotifier
	results  *QueryCache
}

// NewCacheAwareManager wires a snapshot manager and an optional result cache
// to a fresh notifier. results may be nil.
func NewCacheAwareManager(m *Manager, results *QueryCache) *CacheAwareManager {
	cam := &CacheAwareManager{
		Manager:  m,
		notifier: NewChangeNotifier(),
		results:  results,
	}
	cam.notifier.AddListener(cam)
	return cam
}

func (cam *CacheAwareManager) OnCollectionChange(collection, action string) {
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete, ActionReload:
		cam.Invalidate(collection)
		if cam.results != nil {
			cam.results.Purge(collection)
		}
	}
}

func (cam *CacheAwareManager) GetNotifier() *ChangeNotifier {
	return cam.notifier
}

func (cam *CacheAwareManager) Results() *QueryCache {
	return cam.results
}

// InvalidateAll removes all entries from both caches
func (cam *CacheAwareManager) InvalidateAll() {
	cam.Clear()
	if cam.results != nil {
		cam.results.Clear()
	}
}
