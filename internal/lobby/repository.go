package lobby

import (
	"context"
	"time"
)

// Repo 定义对房间目录的抽象操作
type Repo interface {
	// Save 写入或覆盖一个房间摘要；ttl 为 0 表示不过期
	Save(ctx context.Context, e Entry, ttl time.Duration) error
	// Remove 删除房间
	Remove(ctx context.Context, game, code string) error
	// List 返回房间列表；game 为空时返回全部
	List(ctx context.Context, game string) ([]Entry, error)
	// Get 查询单个房间
	Get(ctx context.Context, game, code string) (Entry, bool, error)
}
