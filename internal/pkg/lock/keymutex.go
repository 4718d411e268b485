// internal/pkg/lock/keymutex.go
package lock

import "sync"

// KeyMutex 是 Locker 的进程内实现，按 Key 维护一组互斥锁。
// 单实例部署时这已经足够；多实例部署应换用 ZkLocker。
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *KeyMutex) Lock(key string) (Unlocker, error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return mutexUnlocker{m}, nil
}

type mutexUnlocker struct {
	m *sync.Mutex
}

func (u mutexUnlocker) Unlock() error {
	u.m.Unlock()
	return nil
}
