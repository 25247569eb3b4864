package model

import "time"

// SystemSetting 商城系统配置模型 (只读)。
// 配置的增删改由商城后台负责，本服务只消费校验后的值。
// 历史上 PAYMENT 大小写两套分类已由迁移合并，这里只有单一规范命名空间。
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;column:setting_key;type:varchar(64)"`
	Value     string    `gorm:"column:setting_value;type:text"`
	Category  string    `gorm:"column:category;type:varchar(32);index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SystemSetting) TableName() string { return "system_setting" }
