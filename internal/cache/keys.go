package cache

import (
	"fmt"
	"time"

	"sudooom.fedi.sync/internal/model"
)

const (
	// TranslationKeyPrefix 译文 Redis Key 前缀
	// Key: fedisync:translation:{accountId}:{statusId}
	TranslationKeyPrefix = "fedisync:translation:"

	// DefaultTranslationTTL 译文默认过期时间
	DefaultTranslationTTL = 24 * time.Hour
)

// BuildTranslationKey 构建译文 Key
func BuildTranslationKey(accountID model.AccountID, statusID string) string {
	return fmt.Sprintf("%s%d:%s", TranslationKeyPrefix, accountID, statusID)
}
