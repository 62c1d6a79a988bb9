package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/router"
)

// Preset is a one-shot agent persona loaded from a YAML file under the
// presets dir. It runs a single completion at its model tier, no tools.
type Preset struct {
	SystemPrompt string `yaml:"system_prompt"`
	ModelType    string `yaml:"model_type"` // complex | simple | fast
	Description  string `yaml:"description"`
}

func presetCmd() *cobra.Command {
	var (
		list  bool
		input string
	)

	cmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "Run a one-shot preset persona",
		Long: `Presets are YAML personas under the presets directory:

  system_prompt: You are a haiku reviewer...
  model_type: fast
  description: Reviews text as haiku

Run one with an input, or list what is available.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if list || len(args) == 0 {
				listPresets(cfg.PresetsDir)
				return
			}
			runPreset(cfg, args[0], input)
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list available presets")
	cmd.Flags().StringVarP(&input, "input", "i", "", "input text for the preset")
	return cmd
}

func listPresets(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading presets dir: %v\n", err)
		return
	}
	var rows [][]string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		p, err := loadPreset(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		rows = append(rows, []string{base, p.ModelType, p.Description})
	}
	if len(rows) == 0 {
		fmt.Println("No presets found. Drop YAML files into the presets directory.")
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	fmt.Print(renderTable([]string{"NAME", "TIER", "DESCRIPTION"}, rows))
}

func runPreset(cfg *config.Config, name, input string) {
	if input == "" {
		fmt.Fprintln(os.Stderr, "preset needs --input text")
		os.Exit(1)
	}

	p, err := findPreset(cfg.PresetsDir, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rt := newRuntime(cfg)
	defer rt.close()

	taskType := p.ModelType
	if taskType == "" {
		taskType = "simple"
	}
	out, err := rt.router.Complete(context.Background(), router.CompleteOptions{
		Messages: []providers.Message{
			{Role: "system", Content: p.SystemPrompt},
			{Role: "user", Content: input},
		},
		AgentRole: name,
		TaskType:  taskType,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out)
}

func findPreset(dir, name string) (*Preset, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return loadPreset(path)
		}
	}
	return nil, fmt.Errorf("preset %q not found in %s", name, dir)
}

func loadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", filepath.Base(path), err)
	}
	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("preset %s has no system_prompt", filepath.Base(path))
	}
	return &p, nil
}
