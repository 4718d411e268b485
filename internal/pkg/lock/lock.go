// internal/pkg/lock/lock.go
package lock

import "sort"

// Unlocker 释放一次已经持有的租约
type Unlocker interface {
	Unlock() error
}

// Locker 对单个资源 Key 提供互斥租约。
// 同一个 Key 上的并发调用者串行化，不同 Key 互不阻塞。
type Locker interface {
	Lock(key string) (Unlocker, error)
}

// LockAll 按固定的字典序依次对一批 Key 加锁，避免交叉加锁导致死锁。
// 任意一把锁获取失败时，回滚已持有的锁。
func LockAll(l Locker, keys []string) (Unlocker, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make(multiUnlocker, 0, len(sorted))
	for _, k := range sorted {
		u, err := l.Lock(k)
		if err != nil {
			held.Unlock()
			return nil, err
		}
		held = append(held, u)
	}
	return held, nil
}

type multiUnlocker []Unlocker

// Unlock 逆序释放，与加锁顺序对称
func (m multiUnlocker) Unlock() error {
	var firstErr error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
