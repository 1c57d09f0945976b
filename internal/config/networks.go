package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkDefinitions models the structure of configs/networks.yaml.
type NetworkDefinitions struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition describes a single Sui network endpoint definition.
type NetworkDefinition struct {
	RPCURL        string `yaml:"rpc_url"`
	PackageID     string `yaml:"package_id"`
	ClockObjectID string `yaml:"clock_object_id"`
	Description   string `yaml:"description"`
}

// LoadNetworkDefinitions parses the YAML file containing network metadata.
func LoadNetworkDefinitions(path string) (NetworkDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkDefinitions{Networks: map[string]NetworkDefinition{}}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkDefinitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}

	var defs NetworkDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return NetworkDefinitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	if defs.Networks == nil {
		defs.Networks = map[string]NetworkDefinition{}
	}
	return defs, nil
}

// ResolveNetwork merges the definition file with config-level overrides and
// returns the effective endpoint parameters for the selected network.
func (c *Config) ResolveNetwork() (NetworkDefinition, error) {
	defs, err := LoadNetworkDefinitions(c.Network.DefinitionPath)
	if err != nil {
		return NetworkDefinition{}, err
	}

	def := defs.Networks[c.Network.Name]
	if c.Network.RPCURL != "" {
		def.RPCURL = c.Network.RPCURL
	}
	if c.Network.PackageID != "" {
		def.PackageID = c.Network.PackageID
	}
	if c.Network.ClockObjectID != "" {
		def.ClockObjectID = c.Network.ClockObjectID
	}
	if def.ClockObjectID == "" {
		def.ClockObjectID = defaultClockObjectID
	}

	if strings.TrimSpace(def.RPCURL) == "" {
		return NetworkDefinition{}, fmt.Errorf("网络 %s 未配置 RPC 地址", c.Network.Name)
	}
	if strings.TrimSpace(def.PackageID) == "" {
		return NetworkDefinition{}, fmt.Errorf("网络 %s 未配置合约包 ID", c.Network.Name)
	}
	return def, nil
}
