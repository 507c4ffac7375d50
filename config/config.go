package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/go-errors/errors"
	"github.com/tkanos/gonfig"

	"xnopay.com/payment-gateway/common"
	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/wallet"
)

type jsonConfiguration struct {
	Port              int
	RpcUrl            string
	WsUrl             string
	Representative    string
	Seed              string
	DefaultTimeout    Duration
	PollInterval      Duration
	JaegerUrl         string
	JaegerServiceName string
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil
	default:
		return errors.New("invalid duration")
	}
}

type GatewayConfig struct {
	RpcUrl         string
	WsUrl          string
	Representative string
	Seed           string
	DefaultTimeout time.Duration
	PollInterval   time.Duration
}

type Configuration struct {
	Port          int
	JaegerConfig  *common.JaegerConfig
	GatewayConfig GatewayConfig
}

const defaultRpcUrl = "https://nano.a.exodus.io/"

func DefaultCfg() *Configuration {
	return &Configuration{
		Port: 8080,
		GatewayConfig: GatewayConfig{
			RpcUrl:         defaultRpcUrl,
			Representative: wallet.DefaultRepresentative,
			DefaultTimeout: 30 * time.Minute,
			PollInterval:   7 * time.Second,
		},
	}
}

func ParseConfiguration(configFile string) (*Configuration, error) {
	rawConfig := jsonConfiguration{}

	err := gonfig.GetConf(configFile, &rawConfig)
	if err != nil {
		log.Error("Read json config error: ", err)
		return nil, err
	}

	instance := &Configuration{
		Port: rawConfig.Port,
		GatewayConfig: GatewayConfig{
			RpcUrl:         rawConfig.RpcUrl,
			WsUrl:          rawConfig.WsUrl,
			Representative: rawConfig.Representative,
			Seed:           rawConfig.Seed,
			DefaultTimeout: rawConfig.DefaultTimeout.Duration,
			PollInterval:   rawConfig.PollInterval.Duration,
		},
	}
	if rawConfig.JaegerUrl != "" {
		instance.JaegerConfig = &common.JaegerConfig{
			Url:         rawConfig.JaegerUrl,
			ServiceName: rawConfig.JaegerServiceName,
		}
	}

	defCfg := DefaultCfg()
	if instance.Port == 0 {
		instance.Port = defCfg.Port
	}
	if instance.GatewayConfig.RpcUrl == "" {
		instance.GatewayConfig.RpcUrl = defCfg.GatewayConfig.RpcUrl
	}
	if instance.GatewayConfig.Representative == "" {
		instance.GatewayConfig.Representative = defCfg.GatewayConfig.Representative
	}
	if instance.GatewayConfig.DefaultTimeout == 0 {
		instance.GatewayConfig.DefaultTimeout = defCfg.GatewayConfig.DefaultTimeout
	}
	if instance.GatewayConfig.PollInterval == 0 {
		instance.GatewayConfig.PollInterval = defCfg.GatewayConfig.PollInterval
	}
	return instance, nil
}

func ParseConfig() (*Configuration, error) {
	configPath := "config.json"
	if len(os.Args) == 2 {
		configPath = os.Args[1]
	}

	config, err := ParseConfiguration(configPath)
	if err != nil {
		log.Warnf("Error reading configuration file (%s), using defaults: %v", configPath, err)
		return DefaultCfg(), nil
	}
	return config, nil
}
