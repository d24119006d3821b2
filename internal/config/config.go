package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ridersettle/internal/model"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Ingest IngestConfig `toml:"ingest"`
	Auth   AuthConfig   `toml:"auth"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// IngestConfig 导入配置
type IngestConfig struct {
	Timezone          string `toml:"timezone"`            // 文件名日期与默认周期使用的时区
	RunTimeoutSeconds int    `toml:"run_timeout_seconds"` // 单次导入超时
}

// AuthConfig 访问令牌配置
type AuthConfig struct {
	Tokens []TokenConfig `toml:"tokens"`
}

// TokenConfig 预置访问令牌
type TokenConfig struct {
	Token     string `toml:"token"`
	Role      string `toml:"role"`
	CompanyID string `toml:"company_id"`
	BranchID  string `toml:"branch_id"`
}

// Caller 令牌对应的调用方
func (t TokenConfig) Caller() model.Caller {
	return model.Caller{
		Role:      model.Role(t.Role),
		CompanyID: t.CompanyID,
		BranchID:  t.BranchID,
	}
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Ingest: IngestConfig{
			Timezone:          "Asia/Seoul",
			RunTimeoutSeconds: 120,
		},
	}
}

// Location 导入使用的时区；无法加载时回退为本地时区
func (c *AppConfig) Location() *time.Location {
	if c.Ingest.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Ingest.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RunTimeout 单次导入超时
func (c *AppConfig) RunTimeout() time.Duration {
	if c.Ingest.RunTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Ingest.RunTimeoutSeconds) * time.Second
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Ingest.Timezone != "" {
		if _, err := time.LoadLocation(c.Ingest.Timezone); err != nil {
			return fmt.Errorf("invalid ingest.timezone %q: %w", c.Ingest.Timezone, err)
		}
	}
	for i, t := range c.Auth.Tokens {
		if t.Token == "" {
			return fmt.Errorf("auth.tokens[%d]: empty token", i)
		}
		switch model.Role(t.Role) {
		case model.RoleSuperAdmin, model.RoleCompanyAdmin, model.RoleBranchManager, model.RoleRider:
		default:
			return fmt.Errorf("auth.tokens[%d]: unknown role %q", i, t.Role)
		}
		if model.Role(t.Role) == model.RoleBranchManager && t.BranchID == "" {
			return fmt.Errorf("auth.tokens[%d]: branch_manager requires branch_id", i)
		}
	}
	return nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultPath 默认配置文件路径（可执行文件同目录下的 config.toml）
func DefaultPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadFile 从指定路径加载配置并返回元信息；文件不存在时使用默认配置
func LoadFile(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, info, err
		}
		// 配置文件不存在，使用默认配置
	} else {
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	// 环境变量覆盖
	if v := os.Getenv("RIDERSETTLE_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("RIDERSETTLE_TIMEZONE"); v != "" {
		config.Ingest.Timezone = v
	}

	return config, info, nil
}

// SaveConfig 保存配置到指定路径
func SaveConfig(config *AppConfig, configPath string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

// ResolveDataDir 数据目录：绝对路径原样使用，相对路径相对可执行文件目录
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// EnsureDataDir 确保数据目录及子目录存在
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"blobs"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}

// DBPath 数据库文件路径
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "ridersettle.db")
}

// BlobDir 上传文件根目录
func BlobDir(dataDir string) string {
	return filepath.Join(dataDir, "blobs")
}
