package data

import (
	"context"
	"errors"
	"time"

	"xinyuan_tech/settlement-service/internal/biz"
	"xinyuan_tech/settlement-service/internal/constants"
	"xinyuan_tech/settlement-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// settingsRepo 财务配置仓库实现。
// 商城 system_setting 表的只读消费方，redis 缓存加速高频读取；
// 缓存不可用时直接回源数据库，门禁判定不依赖缓存可用性。
type settingsRepo struct {
	data *Data
	log  *log.Helper
}

// NewSettingsRepo 创建财务配置仓库
func NewSettingsRepo(data *Data, logger log.Logger) biz.SettingsRepo {
	return &settingsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetSetting 读取配置值，第二个返回值表示该键是否存在。
// 不存在的键也缓存 (空值缓存)，避免缺失配置导致的穿透。
func (r *settingsRepo) GetSetting(ctx context.Context, key string) (string, bool, error) {
	cacheKey := constants.SettingsCachePrefix + key

	if r.data.rdb != nil {
		cached, err := r.data.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			if cached == constants.NullCacheValue {
				return "", false, nil
			}
			return cached, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("Settings cache read failed for %s, falling back to db: %v", key, err)
		}
	}

	var m model.SystemSetting
	err := r.data.DB(ctx).Where("setting_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.cacheSet(ctx, cacheKey, constants.NullCacheValue, constants.NullCacheExpiration)
		return "", false, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get setting %s: %v", key, err)
		return "", false, err
	}

	r.cacheSet(ctx, cacheKey, m.Value, constants.SettingsCacheExpiration)
	return m.Value, true, nil
}

// cacheSet 写缓存，失败只告警不影响主流程
func (r *settingsRepo) cacheSet(ctx context.Context, key, value string, expiration time.Duration) {
	if r.data.rdb == nil {
		return
	}
	if err := r.data.rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		r.log.Warnf("Settings cache write failed for %s: %v", key, err)
	}
}
