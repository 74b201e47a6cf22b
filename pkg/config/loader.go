package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig 加载配置，支持多环境
// env: local, production, 或其他环境名称
// configDir: 配置文件目录，默认为 "config"
func LoadConfig(env string, configDir string) (map[string]interface{}, error) {
	if configDir == "" {
		configDir = "config"
	}

	// 1. 加载 base.yaml
	baseConfig, err := loadYAMLFile(filepath.Join(configDir, "base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	// 2. 加载环境特定配置（如果存在）
	envConfig := make(map[string]interface{})
	if env != "" && env != "base" {
		envFile := filepath.Join(configDir, fmt.Sprintf("%s.yaml", env))
		if _, err := os.Stat(envFile); err == nil {
			envConfig, err = loadYAMLFile(envFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
			}
		}
	}

	// 3. 合并配置（环境配置覆盖基础配置）
	merged := mergeMaps(baseConfig, envConfig)

	// 4. 加载 secrets.env（如果存在）
	secrets := make(map[string]string)
	secretsFile := filepath.Join(configDir, "secrets.env")
	if _, err := os.Stat(secretsFile); err == nil {
		secrets, err = loadEnvFile(secretsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets.env: %w", err)
		}
	}

	// 5. 替换占位符：系统环境变量优先于 secrets.env
	return substituteEnvVars(merged, secrets), nil
}

// loadYAMLFile 加载 YAML 文件
func loadYAMLFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadEnvFile 加载 .env 文件
func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		value = strings.Trim(value, `'`)
		env[strings.TrimSpace(key)] = value
	}

	return env, nil
}

// mergeMaps 合并两个 map，dst 会被 src 覆盖
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(dst))
	for k, v := range dst {
		result[k] = v
	}

	for k, v := range src {
		dstMap, dstOK := result[k].(map[string]interface{})
		srcMap, srcOK := v.(map[string]interface{})
		if dstOK && srcOK {
			// 递归合并嵌套 map
			result[k] = mergeMaps(dstMap, srcMap)
			continue
		}
		result[k] = v
	}

	return result
}

// substituteEnvVars 替换配置中的环境变量占位符 ${VAR_NAME}
func substituteEnvVars(config map[string]interface{}, secrets map[string]string) map[string]interface{} {
	result := make(map[string]interface{}, len(config))
	for k, v := range config {
		result[k] = substituteValue(v, secrets)
	}
	return result
}

func substituteValue(v interface{}, secrets map[string]string) interface{} {
	switch val := v.(type) {
	case string:
		return substituteString(val, secrets)
	case map[string]interface{}:
		return substituteEnvVars(val, secrets)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = substituteValue(item, secrets)
		}
		return out
	default:
		return v
	}
}

// substituteString 替换字符串中的环境变量；未定义的占位符替换为空串
func substituteString(s string, secrets map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return secrets[name]
	})
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（从环境变量 CONFIG_ENV，默认为 local）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
