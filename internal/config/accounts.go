package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"sudooom.fedi.sync/internal/model"
	"sudooom.fedi.sync/pkg/snowflake"
)

// AccountEntry 账号文件中的一项
type AccountEntry struct {
	ID                       int64  `yaml:"id"`
	Domain                   string `yaml:"domain"`
	Username                 string `yaml:"username"`
	AccessToken              string `yaml:"access_token"`
	AlwaysShowSensitiveMedia bool   `yaml:"always_show_sensitive_media"`
	AlwaysOpenSpoiler        bool   `yaml:"always_open_spoiler"`
}

type accountsFile struct {
	Accounts []AccountEntry `yaml:"accounts"`
}

// LoadAccounts 读取账号文件，未指定ID的账号由 node 生成
func LoadAccounts(path string, node *snowflake.Node) ([]model.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAccounts(data, node)
}

// ParseAccounts 解析账号 YAML
func ParseAccounts(data []byte, node *snowflake.Node) ([]model.Account, error) {
	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}

	now := time.Now()
	seen := make(map[string]struct{}, len(f.Accounts))
	accounts := make([]model.Account, 0, len(f.Accounts))
	for i, e := range f.Accounts {
		domain := strings.TrimSpace(strings.ToLower(e.Domain))
		if domain == "" || e.Username == "" || e.AccessToken == "" {
			return nil, fmt.Errorf("accounts[%d]: domain, username and access_token are required", i)
		}
		key := e.Username + "@" + domain
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("accounts[%d]: duplicate account %s", i, key)
		}
		seen[key] = struct{}{}

		id := e.ID
		if id == 0 {
			if node == nil {
				return nil, fmt.Errorf("accounts[%d]: id is required", i)
			}
			id = node.Generate().Int64()
		}

		accounts = append(accounts, model.Account{
			ID:                       model.AccountID(id),
			Domain:                   domain,
			Username:                 e.Username,
			AccessToken:              e.AccessToken,
			AlwaysShowSensitiveMedia: e.AlwaysShowSensitiveMedia,
			AlwaysOpenSpoiler:        e.AlwaysOpenSpoiler,
			CreatedAt:                now,
		})
	}
	return accounts, nil
}
