package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/emx-mail/compose/pkgs/config"
)

func handleInit() error {
	root := config.ExampleRootConfig()

	if config.HasEmxConfig() {
		data, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format example config: %w", err)
		}

		fmt.Println("emx-config detected. Accounts are shared with emx-mail.")
		fmt.Println("Example JSON (keys under 'mail'):")
		fmt.Println(string(data))
		fmt.Println("aliases, locale and store are read by emx-compose only.")
		return nil
	}

	configPath, err := config.GetEnvConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	if err := config.SaveConfig(configPath, root); err != nil {
		return err
	}
	fmt.Printf("Created config file at: %s\n", configPath)
	fmt.Println("Edit the account address, aliases and stores before use.")
	return nil
}
