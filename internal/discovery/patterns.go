package discovery

import "lmbridge/internal/catalog"

func command(name, description string, props map[string]catalog.PropertySchema, required ...string) catalog.ToolSignature {
	if required == nil {
		required = []string{}
	}

	return catalog.ToolSignature{
		Name:        name,
		Description: description,
		Parameters: catalog.JSONSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func argsProp() catalog.PropertySchema {
	return catalog.PropertySchema{
		Type:        "array",
		Description: "Argument list",
		Items:       &catalog.PropertySchema{Type: "string"},
	}
}

// patternTable maps common shell and dev-tool names to hand-authored
// signatures. Exact name match only.
var patternTable = map[string]catalog.ToolSignature{
	"ls": command("ls", "List directory contents", map[string]catalog.PropertySchema{
		"path": {Type: "string", Description: "Directory to list"},
	}),
	"cat": command("cat", "Print file contents", map[string]catalog.PropertySchema{
		"path": {Type: "string", Description: "File to print"},
	}, "path"),
	"cp": command("cp", "Copy files", map[string]catalog.PropertySchema{
		"source":      {Type: "string", Description: "Source path"},
		"destination": {Type: "string", Description: "Destination path"},
	}, "source", "destination"),
	"mv": command("mv", "Move files", map[string]catalog.PropertySchema{
		"source":      {Type: "string", Description: "Source path"},
		"destination": {Type: "string", Description: "Destination path"},
	}, "source", "destination"),
	"rm": command("rm", "Remove files", map[string]catalog.PropertySchema{
		"path": {Type: "string", Description: "Path to remove"},
	}, "path"),
	"git": command("git", "Run a git subcommand", map[string]catalog.PropertySchema{
		"subcommand": {Type: "string", Description: "Git subcommand"},
		"args":       argsProp(),
	}, "subcommand"),
	"npm": command("npm", "Run an npm command", map[string]catalog.PropertySchema{
		"command": {Type: "string", Description: "npm command"},
		"args":    argsProp(),
	}, "command"),
	"python": command("python", "Evaluate Python code", map[string]catalog.PropertySchema{
		"code": {Type: "string", Description: "Python source"},
	}, "code"),
	"go": command("go", "Run a go toolchain command", map[string]catalog.PropertySchema{
		"command": {Type: "string", Description: "go subcommand, e.g. build or test"},
		"args":    argsProp(),
	}, "command"),
	"make": command("make", "Run a make target", map[string]catalog.PropertySchema{
		"target": {Type: "string", Description: "Target to build"},
	}),
	"docker": command("docker", "Run a docker command", map[string]catalog.PropertySchema{
		"command": {Type: "string", Description: "docker subcommand"},
		"args":    argsProp(),
	}, "command"),
	"cargo": command("cargo", "Run a cargo command", map[string]catalog.PropertySchema{
		"command": {Type: "string", Description: "cargo subcommand"},
		"args":    argsProp(),
	}, "command"),
	"sed": command("sed", "Stream-edit text", map[string]catalog.PropertySchema{
		"expression": {Type: "string", Description: "sed expression"},
		"path":       {Type: "string", Description: "File to edit"},
	}, "expression"),
	"awk": command("awk", "Process text with awk", map[string]catalog.PropertySchema{
		"program": {Type: "string", Description: "awk program"},
		"path":    {Type: "string", Description: "Input file"},
	}, "program"),
	"tar": command("tar", "Create or extract archives", map[string]catalog.PropertySchema{
		"operation": {Type: "string", Description: "create or extract", Enum: []string{"create", "extract"}},
		"archive":   {Type: "string", Description: "Archive path"},
	}, "operation", "archive"),
	"curl": command("curl", "Fetch a URL", map[string]catalog.PropertySchema{
		"url": {Type: "string", Description: "URL to fetch"},
	}, "url"),
}
