package conf

import (
	"fmt"
)

type Bootstrap struct {
	Server     *Server     `yaml:"server" json:"server"`
	Data       *Data       `yaml:"data" json:"data"`
	Settlement *Settlement `yaml:"settlement" json:"settlement"`
	Log        *Log        `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver          string `yaml:"driver" json:"driver"`
		Source          string `yaml:"source" json:"source"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
		DialTimeout  string `yaml:"dial_timeout" json:"dial_timeout"`
		PoolSize     int32  `yaml:"pool_size" json:"pool_size"`
		MinIdleConns int32  `yaml:"min_idle_conns" json:"min_idle_conns"`
	} `yaml:"redis" json:"redis"`
}

// Settlement 结算引擎自身的运行参数。
// 财务业务规则 (托管开关、托管期、佣金费率、最低打款金额) 不在这里，
// 它们来自商城的 system_setting 表，由 SettingsGate 在每次操作前读取校验。
type Settlement struct {
	// ReleaseBatchSize 定时释放单次扫描的最大托管交易数
	ReleaseBatchSize int `yaml:"release_batch_size" json:"release_batch_size"`
	// AuditRetentionDays 审计日志保留天数，仅保留期外的记录可被清理任务删除
	AuditRetentionDays int `yaml:"audit_retention_days" json:"audit_retention_days"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Settlement == nil {
		return fmt.Errorf("settlement configuration is required")
	}
	if b.Settlement.AuditRetentionDays < 0 {
		return fmt.Errorf("settlement.audit_retention_days must be >= 0")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}
