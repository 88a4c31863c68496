package task

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// TaskConfig represents the structure of the tasks YAML file.
type TaskConfig struct {
	Tasks []struct {
		TaskName        string `yaml:"task_name"`
		Wallet          string `yaml:"wallet"`
		AssetFrom       string `yaml:"asset_from"`
		AssetTo         string `yaml:"asset_to"`
		MaxAmountToSwap string `yaml:"max_amount_to_swap"`
		AmountToReceive string `yaml:"amount_to_receive"`
		ToAmountOffset  uint64 `yaml:"to_amount_offset"`
		CallData        string `yaml:"calldata"`
		Augustus        string `yaml:"augustus"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// LoadTasks reads buy tasks from a YAML file. Invalid entries are skipped
// with a warning; at least one valid task must remain.
func (m *Manager) LoadTasks(path string) ([]*Task, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config TaskConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(config.Tasks))
	for i, taskData := range config.Tasks {
		task := &Task{
			ID:              i,
			TaskName:        taskData.TaskName,
			WalletName:      taskData.Wallet,
			AssetFrom:       taskData.AssetFrom,
			AssetTo:         taskData.AssetTo,
			MaxAmountToSwap: taskData.MaxAmountToSwap,
			AmountToReceive: taskData.AmountToReceive,
			ToAmountOffset:  taskData.ToAmountOffset,
			CallData:        taskData.CallData,
			Augustus:        taskData.Augustus,
			CreatedAt:       time.Now(),
		}

		if err := task.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.Int("index", i),
				zap.String("task_name", task.TaskName),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Loaded tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}
