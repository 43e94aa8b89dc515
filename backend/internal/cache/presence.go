package cache

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// PresenceCache 记录每个草稿的在线观看者，供其他进程实例渲染观看者列表。
// 连接心跳负责续期；断线后靠逻辑 TTL 过期。
type PresenceCache interface {
	AddViewer(ctx context.Context, draftID string, userID uint64, username string, ttl time.Duration) error
	RemoveViewer(ctx context.Context, draftID string, userID uint64) error
	GetAliveViewers(ctx context.Context, draftID string) ([]Viewer, error)
}

type Viewer struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

// 具体实现：基于 redis 的 PresenceCache
type redisPresence struct {
	rdb redis.UniversalClient
}

func NewRedisPresence(rdb redis.UniversalClient) PresenceCache {
	return &redisPresence{rdb: rdb}
}

// AddViewer 登记或续期一个观看者（续期重复调用即可）。
func (p *redisPresence) AddViewer(ctx context.Context, draftID string, userID uint64, username string, ttl time.Duration) error {
	tx := p.rdb.TxPipeline()
	// ZSET score 使用 expireAt（Unix 秒），表达“逻辑 TTL”
	expireAt := time.Now().Add(ttl).Unix()
	tx.ZAdd(ctx, viewersKey(draftID), redis.Z{Score: float64(expireAt), Member: userID})
	tx.HSet(ctx, namesKey(draftID), userID, username)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) RemoveViewer(ctx context.Context, draftID string, userID uint64) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, viewersKey(draftID), userID)
	tx.HDel(ctx, namesKey(draftID), strconv.FormatUint(userID, 10))
	_, err := tx.Exec(ctx)
	return err
}

// 清理过期成员并返回仍在线的观看者。
// 清理用 Lua 保证 ZSet 与名字表一起收缩。
var sweepScript = redis.NewScript(`
-- KEYS[1] = viewersKey(draftID)
-- KEYS[2] = namesKey(draftID)
-- ARGV[1] = now (unix seconds)

local expired = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if #expired > 0 then
	redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
	redis.call("HDEL", KEYS[2], unpack(expired))
end
return #expired
`)

func (p *redisPresence) GetAliveViewers(ctx context.Context, draftID string) ([]Viewer, error) {
	now := time.Now().Unix()
	if _, err := sweepScript.Run(ctx, p.rdb, []string{viewersKey(draftID), namesKey(draftID)}, now).Int(); err != nil && err != redis.Nil {
		return nil, err
	}

	aliveIDs, err := p.rdb.ZRangeByScore(ctx, viewersKey(draftID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10), // > now
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	names, err := p.rdb.HMGet(ctx, namesKey(draftID), aliveIDs...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	viewers := make([]Viewer, 0, len(aliveIDs))
	for i, raw := range aliveIDs {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		name := ""
		if i < len(names) && names[i] != nil {
			name, _ = names[i].(string)
		}
		viewers = append(viewers, Viewer{UserID: uid, Username: name})
	}
	return viewers, nil
}
