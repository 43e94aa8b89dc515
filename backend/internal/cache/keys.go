package cache

import "fmt"

// 键语义：
// - viewersKey(draftID): 草稿在线观看者（ZSet<userId, expireAtUnix>，score=expireAt）
// - namesKey(draftID):   userId→username 映射（Hash）
// hash tag 保证同一草稿的两个键落在同一 slot，事务/脚本才能一起操作。

const (
	keyViewersFmt = "presence:draft:{%s}"       // ZSet<userId, expireAtUnix>
	keyNamesFmt   = "presence:draft:names:{%s}" // Hash<userId -> username>
)

func viewersKey(draftID string) string { return fmt.Sprintf(keyViewersFmt, draftID) }
func namesKey(draftID string) string   { return fmt.Sprintf(keyNamesFmt, draftID) }
