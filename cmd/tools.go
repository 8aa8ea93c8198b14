package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools known to the running bridge",
	Long:  `Query the running bridge service and print its tool catalog.`,
	RunE:  runTools,
}

type toolListing struct {
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"function"`
	} `json:"tools"`
}

func runTools(_ *cobra.Command, _ []string) error {
	cfg := cfgMgr.Get()

	client := &http.Client{Timeout: 5 * time.Second}

	url := fmt.Sprintf("http://%s:%d/tools", cfg.Host, cfg.Port)

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("bridge not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var listing toolListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fmt.Errorf("decode tool listing: %w", err)
	}

	color.Blue("Registered tools (%d):", len(listing.Tools))

	for _, t := range listing.Tools {
		color.Green("  %s", t.Function.Name)

		if t.Function.Description != "" {
			fmt.Printf("      %s\n", t.Function.Description)
		}
	}

	return nil
}
