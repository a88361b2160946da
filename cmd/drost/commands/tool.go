package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/providers"
)

// toolTemplates is the built-in catalog of tool definition skeletons
// `tool new` can scaffold, trimmed to the categories this gateway's
// tool registry actually dispatches: filesystem, runtime, web, and
// session control.
var toolTemplates = map[string]providers.ToolDefinition{
	"read_file": {
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        "read_file",
			Description: "Read file contents from the workspace",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
				"required":   []string{"path"},
			},
		},
	},
	"write_file": {
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        "write_file",
			Description: "Write or create files in the workspace",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    map[string]interface{}{"type": "string"},
					"content": map[string]interface{}{"type": "string"},
				},
				"required": []string{"path", "content"},
			},
		},
	},
	"exec": {
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        "exec",
			Description: "Execute a shell command in the workspace",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"command": map[string]interface{}{"type": "string"}},
				"required":   []string{"command"},
			},
		},
	},
	"web_fetch": {
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        "web_fetch",
			Description: "Fetch and extract content from a web URL",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"url": map[string]interface{}{"type": "string"}},
				"required":   []string{"url"},
			},
		},
	},
	"sessions_send": {
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        "sessions_send",
			Description: "Send a message to another chat session",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sessionId": map[string]interface{}{"type": "string"},
					"content":   map[string]interface{}{"type": "string"},
				},
				"required": []string{"sessionId", "content"},
			},
		},
	},
}

func toolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Inspect and scaffold tool definitions",
	}
	cmd.AddCommand(toolListTemplatesCmd())
	cmd.AddCommand(toolNewCmd())
	return cmd
}

func toolListTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-templates",
		Short: "List built-in tool definition templates",
		Run: func(cmd *cobra.Command, args []string) {
			for name, def := range toolTemplates {
				fmt.Printf("%-16s %s\n", name, def.Function.Description)
			}
		},
	}
}

// toolNewCmd writes a tool definition JSON file into the first
// configured workspace root, seeded from a template if one matches the
// given name, or a bare skeleton otherwise.
func toolNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold a new tool definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			def, ok := toolTemplates[name]
			if !ok {
				def = providers.ToolDefinition{
					Type: "function",
					Function: providers.ToolFunctionSchema{
						Name:        name,
						Description: fmt.Sprintf("TODO: describe %s", name),
						Parameters: map[string]interface{}{
							"type":       "object",
							"properties": map[string]interface{}{},
						},
					},
				}
			}

			root := config.ExpandHome(cfg.Workspace)
			if len(cfg.Tools.WorkspaceRoots) > 0 {
				root = config.ExpandHome(cfg.Tools.WorkspaceRoots[0])
			}
			toolsDir := filepath.Join(root, "tools")
			if err := os.MkdirAll(toolsDir, 0o755); err != nil {
				return fmt.Errorf("create tools directory: %w", err)
			}

			data, err := json.MarshalIndent(def, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal tool definition: %w", err)
			}
			path := filepath.Join(toolsDir, name+".json")
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write tool definition: %w", err)
			}
			fmt.Println(okStyle.Render("wrote " + path))
			return nil
		},
	}
}
