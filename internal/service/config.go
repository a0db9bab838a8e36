package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidProfile 配置中的 Profile 参数超出定义域
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrNoIndicatorsEnabled Profile 没有启用任何指标
	ErrNoIndicatorsEnabled = errors.New("no indicators enabled")
)

// ExchangeConfig 定义了交易所的连接信息。API 凭证来自环境变量，不放在配置文件里。
type ExchangeConfig struct {
	Name    string
	RESTURL string
	WSURL   string
}

// NotifierConfig Telegram 通知配置，Token 为空则禁用
type NotifierConfig struct {
	TelegramToken  string
	TelegramChatID string
	ProxyURL       string
}

// StoreConfig 持仓持久化配置，Path 为空则只用内存
type StoreConfig struct {
	Path string
}

// Profile 定义了单一交易对的全部策略参数。
// 启动时加载并校验一次，运行期间只读。
type Profile struct {
	Symbol       string
	QuoteAsset   string
	BaseAsset    string
	Timeframe    string
	PollInterval time.Duration

	// 指标开关
	UseRSI  bool
	UseMACD bool
	UseEMA  bool

	// RSI
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	// MACD
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int

	// EMA 快慢线周期对 (交叉检测)
	EMAFastPeriod int
	EMASlowPeriod int

	// 下单相关
	CommissionRate float64 // 交易所手续费率 (0.1% = 0.001)
	SafetyMargin   float64 // 买入时预留的余额安全边际

	// 离场保护 (可选)
	UseStopLoss     bool
	StopLossRatio   float64
	UseTakeProfit   bool
	TakeProfitRatio float64
	UseMinProfit    bool
	MinProfitRatio  float64
}

// Config 存储加载后的全局配置
type Config struct {
	Exchange ExchangeConfig
	Notifier NotifierConfig
	Store    StoreConfig
	Profiles map[string]Profile
}

// LoadConfig 读取、解析并校验配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig 校验全部 Profile 并拒绝重复的 Symbol：
// 周期串行化按 Symbol 建立，同一交易对只允许一个 Profile 驱动。
func validateConfig(cfg *Config) error {
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("%w: no profiles configured", ErrInvalidProfile)
	}

	owner := make(map[string]string, len(cfg.Profiles))
	for name, prof := range cfg.Profiles {
		validated, err := validateProfile(name, prof)
		if err != nil {
			return err
		}
		if other, dup := owner[validated.Symbol]; dup {
			return fmt.Errorf("%w %q: symbol %s already traded by profile %q",
				ErrInvalidProfile, name, validated.Symbol, other)
		}
		owner[validated.Symbol] = name
		cfg.Profiles[name] = validated
	}
	return nil
}

// validateProfile 填充默认值并校验参数定义域。
// 任何越界都在启动时失败，绝不留到评估周期再暴露。
func validateProfile(name string, p Profile) (Profile, error) {
	fail := func(format string, args ...any) (Profile, error) {
		return p, fmt.Errorf("%w %q: %s", ErrInvalidProfile, name, fmt.Sprintf(format, args...))
	}

	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return fail("symbol is required")
	}

	if p.QuoteAsset == "" {
		p.QuoteAsset = "USDT"
	}
	p.QuoteAsset = strings.ToUpper(p.QuoteAsset)
	if p.BaseAsset == "" {
		// 例如 XRPUSDT -> XRP
		p.BaseAsset = strings.TrimSuffix(p.Symbol, p.QuoteAsset)
	}
	p.BaseAsset = strings.ToUpper(p.BaseAsset)
	if p.BaseAsset == "" || p.BaseAsset == p.Symbol {
		return fail("cannot derive base asset from symbol %s and quote %s", p.Symbol, p.QuoteAsset)
	}

	if p.Timeframe == "" {
		p.Timeframe = "1m"
	}
	tfDuration, err := ParseIntervalDuration(p.Timeframe)
	if err != nil {
		return fail("bad timeframe: %v", err)
	}
	if p.PollInterval <= 0 {
		p.PollInterval = tfDuration
	}
	if p.PollInterval < time.Second {
		return fail("poll interval %s below 1s", p.PollInterval)
	}

	if !p.UseRSI && !p.UseMACD && !p.UseEMA {
		return p, fmt.Errorf("%w: profile %q", ErrNoIndicatorsEnabled, name)
	}

	// RSI
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 14
	}
	if p.RSIOversold == 0 {
		p.RSIOversold = 30
	}
	if p.RSIOverbought == 0 {
		p.RSIOverbought = 70
	}
	if p.RSIOversold < 0 || p.RSIOverbought > 100 {
		return fail("RSI thresholds must be within [0,100]")
	}
	if p.RSIOversold >= p.RSIOverbought {
		return fail("RSI oversold %.1f must be below overbought %.1f", p.RSIOversold, p.RSIOverbought)
	}

	// MACD
	if p.MACDFastPeriod <= 0 {
		p.MACDFastPeriod = 12
	}
	if p.MACDSlowPeriod <= 0 {
		p.MACDSlowPeriod = 26
	}
	if p.MACDSignalPeriod <= 0 {
		p.MACDSignalPeriod = 9
	}
	if p.MACDFastPeriod >= p.MACDSlowPeriod {
		return fail("MACD fast period %d must be below slow period %d", p.MACDFastPeriod, p.MACDSlowPeriod)
	}

	// EMA
	if p.EMAFastPeriod <= 0 {
		p.EMAFastPeriod = 9
	}
	if p.EMASlowPeriod <= 0 {
		p.EMASlowPeriod = 21
	}
	if p.EMAFastPeriod >= p.EMASlowPeriod {
		return fail("EMA fast period %d must be below slow period %d", p.EMAFastPeriod, p.EMASlowPeriod)
	}

	if p.CommissionRate < 0 || p.CommissionRate >= 1 {
		return fail("commission rate %.4f out of range", p.CommissionRate)
	}
	if p.CommissionRate == 0 {
		p.CommissionRate = 0.001
	}
	if p.SafetyMargin < 0 || p.SafetyMargin >= 1 {
		return fail("safety margin %.4f out of range", p.SafetyMargin)
	}
	if p.SafetyMargin == 0 {
		p.SafetyMargin = 0.005
	}

	if p.UseStopLoss && p.StopLossRatio <= 0 {
		return fail("stop loss enabled but ratio is %.4f", p.StopLossRatio)
	}
	if p.UseTakeProfit && p.TakeProfitRatio <= 0 {
		return fail("take profit enabled but ratio is %.4f", p.TakeProfitRatio)
	}
	if p.UseMinProfit && p.MinProfitRatio < 0 {
		return fail("min profit ratio %.4f out of range", p.MinProfitRatio)
	}

	return p, nil
}
