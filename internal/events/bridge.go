package events

import (
	"sync"

	"github.com/azhengyongqin/transfer-hub/internal/model"
)

// Kind 事件类型。completed 事件同样携带完整 TaskState，
// 只监听 progress 的观察者不会因此丢失终态信息（快照路径兜底）。
type Kind string

const (
	KindProgress  Kind = "progress"
	KindCompleted Kind = "completed"
)

// Event 一次任务状态变更的推送载荷
type Event struct {
	Kind Kind            `json:"event"`
	Task model.TaskState `json:"task"`
}

// Snapshotter 权威拉取源（由 Registry 实现）。
// 推送是尽力而为的延迟优化，重连的观察者以 SnapshotAll 为准。
type Snapshotter interface {
	List() []model.TaskState
}

// Bridge 事件/同步桥：向任意数量订阅者广播任务状态变更，
// 并把拉取查询转发给 Registry（绝不缓存副本）。
type Bridge struct {
	snap Snapshotter

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// 每个订阅者的缓冲大小。写满即丢弃：慢观察者丢事件是协议允许的，
// executor 不允许被订阅者阻塞。
const subscriberBuffer = 64

func NewBridge(snap Snapshotter) *Bridge {
	return &Bridge{
		snap: snap,
		subs: map[int]chan Event{},
	}
}

// Subscribe 注册一个观察者，返回事件通道与注销函数。
// 重新订阅即可重启事件序列；补齐丢失状态请调用 SnapshotAll。
func (b *Bridge) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	stop := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, stop
}

// Publish 广播事件。调用方必须保证对应的 Upsert 已经返回，
// 这样推送观察者与随后的快照读取看到的数据一致。
func (b *Bridge) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// 订阅者太慢，丢弃本条；对方重连后走快照对账
		}
	}
}

// SnapshotAll 权威全量快照，直接读 Registry 当前内容
func (b *Bridge) SnapshotAll() []model.TaskState {
	return b.snap.List()
}
