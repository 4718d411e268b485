package lock

import (
	"sync"
	"testing"
)

func TestKeyMutex_Serializes(t *testing.T) {
	locker := NewKeyMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock("sku-1")
			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
				return
			}
			counter++
			unlock.Unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("Expected counter 50, got %d", counter)
	}
}

func TestLockAll_DeduplicatesKeys(t *testing.T) {
	locker := NewKeyMutex()

	unlock, err := LockAll(locker, []string{"b", "a", "b", "a"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := unlock.Unlock(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// 全部释放后可以再次加锁
	unlock, err = LockAll(locker, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Expected relock to succeed, got: %v", err)
	}
	unlock.Unlock()
}

func TestLockAll_ConcurrentDisjointSets(t *testing.T) {
	locker := NewKeyMutex()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		keys := []string{"x", "y"}
		if i%2 == 0 {
			keys = []string{"y", "x"} // 两个方向的加锁顺序不应死锁
		}
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			unlock, err := LockAll(locker, keys)
			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
				return
			}
			unlock.Unlock()
		}(keys)
	}
	wg.Wait()
}
