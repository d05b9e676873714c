// Command configgen scaffolds a starter cpenv configuration: the tool config
// (cpenv.yaml) and a base environment tree layer (env.json) with a minimal
// cpp and python setup. Existing files are left alone unless -force is given.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cpenv/internal/config"
)

func main() {
	home, _ := os.UserHomeDir()
	dir := flag.String("dir", filepath.Join(home, ".config", "cpenv"), "Directory to write configuration into")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create config directory failed: %v\n", err)
		os.Exit(1)
	}

	cfgPath := filepath.Join(*dir, "config.yaml")
	cfgData, err := yaml.Marshal(config.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal config failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(cfgPath, cfgData, *force); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	envPath := filepath.Join(*dir, "env.json")
	envData, err := json.MarshalIndent(starterEnvTree(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal env tree failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(envPath, append(envData, '\n'), *force); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s\n", cfgPath)
	fmt.Printf("wrote %s\n", envPath)
}

func writeFile(path string, data []byte, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use -force to overwrite", path)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s failed: %w", path, err)
	}
	return nil
}

func starterEnvTree() map[string]interface{} {
	step := func(stepType string, cmd ...string) map[string]interface{} {
		return map[string]interface{}{"type": stepType, "cmd": cmd}
	}
	commands := func(cmds map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"commands": cmds}
	}
	steps := func(ss ...map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{"steps": ss}
	}

	return map[string]interface{}{
		"cpp": commands(map[string]interface{}{
			"build": steps(
				step("shell", "g++ -O2 -std=c++20 -o {problem_dir}/a.out {problem_dir}/main.cpp"),
			),
			"test": steps(
				step("shell", "g++ -O2 -std=c++20 -o {problem_dir}/a.out {problem_dir}/main.cpp"),
				step("oj", "test", "-d", "{problem_dir}/tests", "-c", "{problem_dir}/a.out"),
			),
			"prepare": steps(
				step("mkdir", "{problem_dir}"),
				step("touch", "{problem_dir}/main.cpp"),
			),
		}),
		"python": commands(map[string]interface{}{
			"test": steps(
				step("oj", "test", "-d", "{problem_dir}/tests", "-c", "python3 {problem_dir}/main.py"),
			),
			"prepare": steps(
				step("mkdir", "{problem_dir}"),
				step("touch", "{problem_dir}/main.py"),
			),
		}),
	}
}
