// internal/pkg/lock/zookeeper.go
package lock

import (
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const lockRoot = "/distributed_locks" // 所有分布式锁的根节点

// ZkLocker 是 Locker 的 ZooKeeper 实现，用于多实例部署下的跨进程互斥。
// 每个 Key 对应 lockRoot 下的一个子路径，临时顺序节点保证公平排队。
type ZkLocker struct {
	conn *zk.Conn
}

func NewZkLocker(servers []string, sessionTimeout time.Duration) (*ZkLocker, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to zookeeper")
	}

	// 确保根节点存在。生产环境中这个操作通常由初始化脚本完成
	if _, err := conn.Create(lockRoot, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create lock root node")
	}

	return &ZkLocker{conn: conn}, nil
}

func (z *ZkLocker) Lock(key string) (Unlocker, error) {
	l := zk.NewLock(z.conn, lockRoot+"/"+key, zk.WorldACL(zk.PermAll))
	if err := l.Lock(); err != nil {
		return nil, errors.Wrapf(err, "failed to acquire zookeeper lock for %s", key)
	}
	return l, nil
}

func (z *ZkLocker) Close() {
	z.conn.Close()
}
