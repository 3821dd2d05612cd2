package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy holds the storefront rules that operators tune without a redeploy.
type Policy struct {
	PointsDivisor     int64 `mapstructure:"pointsDivisor"`
	MaxAddressLength  int   `mapstructure:"maxAddressLength"`
	MaxFeedbackLength int   `mapstructure:"maxFeedbackLength"`
}

func DefaultPolicy() Policy {
	return Policy{
		PointsDivisor:     1000,
		MaxAddressLength:  500,
		MaxFeedbackLength: 1000,
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder() (*PolicyHolder, error) {
	return NewPolicyHolderFromPaths("/var/lib/storeline/config", "/etc/storeline", ".")
}

// NewPolicyHolderFromPaths reads policy.yml from the first path that has it
// and watches it for changes. Defaults apply when no file exists.
func NewPolicyHolderFromPaths(paths ...string) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("STORELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.pointsDivisor", defaults.PointsDivisor)
	v.SetDefault("policy.maxAddressLength", defaults.MaxAddressLength)
	v.SetDefault("policy.maxFeedbackLength", defaults.MaxFeedbackLength)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	var cfg Policy
	if err := v.UnmarshalKey("policy", &cfg); err != nil {
		return nil, err
	}
	if err := validatePolicy(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy-config] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	return h.current.Load().(Policy)
}

func validatePolicy(cfg Policy) error {
	if cfg.PointsDivisor <= 0 {
		return errors.New("policy.pointsDivisor must be positive")
	}
	if cfg.MaxAddressLength <= 0 {
		return errors.New("policy.maxAddressLength must be positive")
	}
	if cfg.MaxFeedbackLength <= 0 {
		return errors.New("policy.maxFeedbackLength must be positive")
	}
	return nil
}
