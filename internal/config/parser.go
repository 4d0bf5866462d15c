// Package config provides configuration parsing and management for the
// backup core and its CLI.
package config

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Parser errors.
var (
	ErrInvalidYAML       = errors.New("invalid YAML format")
	ErrInvalidIndent     = errors.New("invalid indentation")
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrInvalidDuration   = errors.New("invalid duration format")
	ErrInvalidNumber     = errors.New("invalid number format")
	ErrFileNotFound      = errors.New("configuration file not found")
	ErrInvalidListItem   = errors.New("invalid list item format")
	ErrMissingConfigFile = errors.New("config file path is required")
	ErrMissingOnChange   = errors.New("onChange callback is required")
)

// LoadConfig loads configuration from a file path.
// It reads the file, substitutes environment variables, parses YAML,
// and applies defaults for missing values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
// It substitutes environment variables and applies defaults for missing values.
func ParseConfig(data []byte) (*Config, error) {
	// Substitute environment variables
	data = substituteEnvVars(data)

	// Start with defaults
	config := DefaultConfig()

	// Parse YAML and merge with defaults
	if err := parseYAML(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment variable values.
func substituteEnvVars(data []byte) []byte {
	// Pattern matches ${VAR} or ${VAR:-default}
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllFunc(data, func(match []byte) []byte {
		// Extract content between ${ and }
		content := string(match[2 : len(match)-1])

		// Check for default value syntax: VAR:-default
		if idx := strings.Index(content, ":-"); idx != -1 {
			varName := content[:idx]
			defaultVal := content[idx+2:]
			if val := os.Getenv(varName); val != "" {
				return []byte(val)
			}
			return []byte(defaultVal)
		}

		// Simple variable substitution
		return []byte(os.Getenv(content))
	})
}

// yamlNode represents a parsed YAML node.
type yamlNode struct {
	key          string
	value        string
	indent       int
	children     []*yamlNode
	isList       bool
	isListObject bool // true when list item contains key: value (- key: value)
	listItems    []string
}

// parseYAML parses YAML data into the config struct.
func parseYAML(data []byte, config *Config) error {
	lines := strings.Split(string(data), "\n")
	root := &yamlNode{indent: -1}

	if err := buildTree(lines, root); err != nil {
		return err
	}

	return applyConfig(root, config)
}

// buildTree builds a tree structure from YAML lines.
func buildTree(lines []string, root *yamlNode) error {
	stack := []*yamlNode{root}

	for _, line := range lines {
		// Skip empty lines and comments
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Calculate indentation
		indent := countIndent(line)

		// Parse key-value or list item
		node, err := parseLine(trimmed, indent)
		if err != nil {
			return err
		}

		// Find parent based on indentation
		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		parent := stack[len(stack)-1]

		// Handle list items
		if node.isList {
			if node.isListObject {
				// List item that starts a new object (- key: value)
				// Create a container node for this list item
				listItemNode := &yamlNode{
					indent:   indent,
					children: []*yamlNode{},
				}
				// Add the first key-value as child
				firstChild := &yamlNode{
					key:    node.key,
					value:  node.value,
					indent: indent + 2,
				}
				listItemNode.children = append(listItemNode.children, firstChild)
				parent.children = append(parent.children, listItemNode)
				stack = append(stack, listItemNode)
				continue
			}

			// Simple list item (- value)
			if parent.listItems == nil {
				parent.listItems = []string{}
			}
			parent.listItems = append(parent.listItems, node.value)
			continue
		}

		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}

	return nil
}

// countIndent counts the number of leading spaces.
func countIndent(line string) int {
	count := 0
	for _, ch := range line {
		if ch == ' ' {
			count++
		} else if ch == '\t' {
			count += 2 // Treat tab as 2 spaces
		} else {
			break
		}
	}
	return count
}

// parseLine parses a single YAML line.
func parseLine(line string, indent int) (*yamlNode, error) {
	// Check for list item
	if strings.HasPrefix(line, "- ") {
		content := strings.TrimPrefix(line, "- ")

		// Check if list item contains key: value (nested object like "- target: *")
		if colonIdx := strings.Index(content, ":"); colonIdx != -1 {
			key := strings.TrimSpace(content[:colonIdx])
			value := ""
			if colonIdx+1 < len(content) {
				value = strings.TrimSpace(content[colonIdx+1:])
			}
			value = unquote(value)

			return &yamlNode{
				key:          key,
				value:        value,
				indent:       indent,
				isList:       true,
				isListObject: true,
			}, nil
		}

		// Simple list item (- value)
		return &yamlNode{
			value:  strings.TrimSpace(content),
			indent: indent,
			isList: true,
		}, nil
	}

	// Parse key: value
	colonIdx := strings.Index(line, ":")
	if colonIdx == -1 {
		return nil, ErrInvalidYAML
	}

	key := strings.TrimSpace(line[:colonIdx])
	value := ""
	if colonIdx+1 < len(line) {
		value = strings.TrimSpace(line[colonIdx+1:])
	}

	// Remove quotes from value
	value = unquote(value)

	return &yamlNode{
		key:    key,
		value:  value,
		indent: indent,
	}, nil
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseInlineArray parses inline array format like ["a", "b", "c"]
func parseInlineArray(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil
	}

	// Remove brackets
	s = s[1 : len(s)-1]
	if s == "" {
		return []string{}
	}

	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		item = unquote(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// applyConfig applies parsed YAML nodes to the config struct.
func applyConfig(root *yamlNode, config *Config) error {
	for _, node := range root.children {
		switch node.key {
		case "backup":
			if err := applyBackupConfig(node, &config.Backup); err != nil {
				return err
			}
		case "paths":
			if err := applyPathsConfig(node, &config.Paths); err != nil {
				return err
			}
		case "logging":
			if err := applyLogConfig(node, &config.Logging); err != nil {
				return err
			}
		case "ptrack":
			if err := applyPtrackConfig(node, &config.Ptrack); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyBackupConfig applies the block-selection and compression settings
// that govern a backup or validation run.
func applyBackupConfig(node *yamlNode, config *BackupConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "mode":
			if child.value != "" {
				config.Mode = child.value
			}
		case "compressAlgorithm":
			if child.value != "" {
				config.CompressAlgorithm = child.value
			}
		case "compressLevel":
			if child.value != "" {
				val, err := strconv.Atoi(child.value)
				if err != nil {
					return ErrInvalidNumber
				}
				config.CompressLevel = val
			}
		case "strict":
			config.Strict = parseBool(child.value)
		case "missingOK":
			config.MissingOK = parseBool(child.value)
		case "workers":
			if child.value != "" {
				val, err := strconv.Atoi(child.value)
				if err != nil {
					return ErrInvalidNumber
				}
				config.Workers = val
			}
		case "checksumsEnabled":
			config.ChecksumsEnabled = parseBool(child.value)
		}
	}
	return nil
}

// applyPathsConfig applies the filesystem locations a backup run reads
// from and writes to.
func applyPathsConfig(node *yamlNode, config *PathsConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "dataDir":
			if child.value != "" {
				config.DataDir = child.value
			}
		case "backupDir":
			if child.value != "" {
				config.BackupDir = child.value
			}
		}
	}
	return nil
}

// applyLogConfig applies logging configuration.
func applyLogConfig(node *yamlNode, config *LogConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "level":
			if child.value != "" {
				config.Level = child.value
			}
		case "format":
			if child.value != "" {
				config.Format = child.value
			}
		case "output":
			if child.value != "" {
				config.Output = child.value
			}
		}
	}
	return nil
}

// applyPtrackConfig applies settings for the PTRACK change-tracking
// backup mode.
func applyPtrackConfig(node *yamlNode, config *PtrackConfig) error {
	for _, child := range node.children {
		switch child.key {
		case "schema":
			if child.value != "" {
				config.Schema = child.value
			}
		case "trackerVersion":
			if child.value != "" {
				val, err := strconv.Atoi(child.value)
				if err != nil {
					return ErrInvalidNumber
				}
				config.TrackerVersion = val
			}
		}
	}
	return nil
}

// parseDuration parses a duration string supporting formats like "30s", "5m", "1h", "90d".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	// Check for day suffix (not supported by time.ParseDuration)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, ErrInvalidDuration
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Use standard library for other formats
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, ErrInvalidDuration
	}
	return dur, nil
}

// parseBool parses a boolean string.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}
