package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	kv : lobby:room:{game}:{code}   -> Entry JSON（可带 TTL）
//	set: lobby:rooms                -> Set("{game}:{code}", ...) 索引，List 时顺带清理已过期成员
const indexKey = "lobby:rooms"

func roomKey(game, code string) string {
	return fmt.Sprintf("lobby:room:%s:%s", game, code)
}

func member(game, code string) string {
	return game + ":" + code
}

func (r *redisRepo) Save(ctx context.Context, e Entry, ttl time.Duration) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", e.Game, e.Code, err)
	}
	p := r.rdb.TxPipeline()
	p.Set(ctx, roomKey(e.Game, e.Code), data, ttl)
	p.SAdd(ctx, indexKey, member(e.Game, e.Code))
	_, err = p.Exec(ctx)
	return err
}

func (r *redisRepo) Remove(ctx context.Context, game, code string) error {
	// KEYS[1] = roomKey, KEYS[2] = indexKey, ARGV[1] = member
	script := `
        redis.call("DEL", KEYS[1])
        redis.call("SREM", KEYS[2], ARGV[1])
        if redis.call("SCARD", KEYS[2]) == 0 then
            redis.call("DEL", KEYS[2])
        end
        return 1
    `
	err := r.rdb.Eval(ctx, script, []string{roomKey(game, code), indexKey}, member(game, code)).Err()
	if err == nil {
		return nil
	}
	// Eval 不可用时退回非原子实现
	p := r.rdb.Pipeline()
	p.Del(ctx, roomKey(game, code))
	p.SRem(ctx, indexKey, member(game, code))
	_, execErr := p.Exec(ctx)
	return execErr
}

func (r *redisRepo) List(ctx context.Context, game string) ([]Entry, error) {
	members, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	var keys, names []string
	for _, m := range members {
		g, code, ok := strings.Cut(m, ":")
		if !ok || (game != "" && g != game) {
			continue
		}
		keys = append(keys, roomKey(g, code))
		names = append(names, m)
	}
	out := make([]Entry, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var stale []any
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, names[i])
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			stale = append(stale, names[i])
			continue
		}
		out = append(out, e)
	}
	if len(stale) > 0 {
		_ = r.rdb.SRem(ctx, indexKey, stale...).Err()
	}
	sortEntries(out)
	return out, nil
}

func (r *redisRepo) Get(ctx context.Context, game, code string) (Entry, bool, error) {
	data, err := r.rdb.Get(ctx, roomKey(game, code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s/%s: %w", game, code, err)
	}
	return e, true, nil
}
