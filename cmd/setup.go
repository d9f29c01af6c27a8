package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/copyurl/internal/plugin"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example configuration to --path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", path)
	return r.writePlain("Run 'copyurl --config %s auth status' to check it.\n", path)
}

type infoOutput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Author        string   `json:"author"`
	Type          string   `json:"type"`
	Version       string   `json:"version"`
	Notifications []string `json:"receive_notifications"`
	Menu          string   `json:"menu"`
}

// Info prints the metadata the plugin declares to its host.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	about := plugin.About()
	out := infoOutput{
		Name:        about.Name,
		Description: about.Description,
		Author:      about.Author,
		Type:        about.Type,
		Version:     about.Version(),
		Menu:        plugin.MenuPath,
	}
	for _, n := range about.ReceiveNotifications {
		out.Notifications = append(out.Notifications, n.String())
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlain("%s %s by %s\n", out.Name, out.Version, out.Author)
	r.writePlain("%s\n", out.Description)
	r.writePlain("Type: %s\n", out.Type)
	r.writePlain("Notifications: %s\n", strings.Join(out.Notifications, ", "))
	return r.writePlain("Menu: %s\n", out.Menu)
}
