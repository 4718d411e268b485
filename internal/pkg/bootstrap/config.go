// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Duration 包装 time.Duration，支持在 YAML 中写 "30m"、"5s" 这种格式
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 是所有服务共享的配置结构
type Config struct {
	Infra InfraConfig `yaml:"infra"`
	App   AppConfig   `yaml:"app"`
}

type InfraConfig struct {
	Mysql struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Addr     string `yaml:"addr"`
		Database string `yaml:"database"`
	} `yaml:"mysql"`
	Kafka struct {
		Brokers    []string `yaml:"brokers"`
		EventTopic string   `yaml:"eventTopic"`
	} `yaml:"kafka"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Zookeeper struct {
		Enabled bool     `yaml:"enabled"`
		Servers []string `yaml:"servers"`
	} `yaml:"zookeeper"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Nacos struct {
		Enabled     bool   `yaml:"enabled"`
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`
}

type AppConfig struct {
	Reservation struct {
		TTL             Duration `yaml:"ttl"`
		ReaperInterval  Duration `yaml:"reaperInterval"`
		ReaperBatchSize int      `yaml:"reaperBatchSize"`
	} `yaml:"reservation"`
	LowStock struct {
		Interval Duration `yaml:"interval"`
		Rule     string   `yaml:"rule"`
	} `yaml:"lowStock"`
	Orphan struct {
		Interval Duration `yaml:"interval"`
		MaxRetry int      `yaml:"maxRetry"`
	} `yaml:"orphan"`
	Outbox struct {
		RedeliveryInterval Duration `yaml:"redeliveryInterval"`
	} `yaml:"outbox"`
	UserServiceURL string `yaml:"userServiceURL"`
}

var currentConfig *Config

// GetCurrentConfig 返回 Init 加载的全局配置
func GetCurrentConfig() *Config {
	if currentConfig == nil {
		currentConfig = defaultConfig()
	}
	return currentConfig
}

// Init 从 CONFIG_FILE（默认 configs/config.yaml）加载配置，
// 环境变量可以覆盖最常见的基础设施地址，方便容器化部署
func Init() error {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv("MYSQL_ADDR"); ok {
		cfg.Infra.Mysql.Addr = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v, ok := os.LookupEnv("USER_SERVICE_URL"); ok {
		cfg.App.UserServiceURL = v
	}

	currentConfig = cfg
	return nil
}

// MysqlDSN 用官方驱动的 Config 拼出 DSN，避免手写连接串出错
func (c *Config) MysqlDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Infra.Mysql.User
	mc.Passwd = c.Infra.Mysql.Password
	mc.Net = "tcp"
	mc.Addr = c.Infra.Mysql.Addr
	mc.DBName = c.Infra.Mysql.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Infra.Mysql.User = "root"
	cfg.Infra.Mysql.Addr = "localhost:3306"
	cfg.Infra.Mysql.Database = "marketplace"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Kafka.EventTopic = "catalog-events"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.App.Reservation.TTL = Duration(30 * time.Minute)
	cfg.App.Reservation.ReaperInterval = Duration(1 * time.Minute)
	cfg.App.Reservation.ReaperBatchSize = 100
	cfg.App.LowStock.Interval = Duration(30 * time.Minute)
	cfg.App.LowStock.Rule = "available <= threshold"
	cfg.App.Orphan.Interval = Duration(5 * time.Minute)
	cfg.App.Orphan.MaxRetry = 10
	cfg.App.Outbox.RedeliveryInterval = Duration(30 * time.Second)
	cfg.App.UserServiceURL = "http://localhost:8084"
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
