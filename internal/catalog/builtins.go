package catalog

func stringProp(desc string) PropertySchema {
	return PropertySchema{Type: "string", Description: desc}
}

func boolProp(desc string) PropertySchema {
	return PropertySchema{Type: "boolean", Description: desc}
}

func objectSchema(props map[string]PropertySchema, required ...string) JSONSchema {
	if required == nil {
		required = []string{}
	}

	return JSONSchema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// builtinSignatures is the fixed builtin table. These are declarative
// signatures only; their registered handlers return a placeholder result
// and never execute anything.
var builtinSignatures = []ToolSignature{
	{
		Name:        "ls",
		Description: "List directory contents",
		Parameters: objectSchema(map[string]PropertySchema{
			"path": stringProp("Directory to list"),
			"all":  boolProp("Include hidden entries"),
		}),
	},
	{
		Name:        "cat",
		Description: "Print file contents",
		Parameters: objectSchema(map[string]PropertySchema{
			"path": stringProp("File to print"),
		}, "path"),
	},
	{
		Name:        "grep",
		Description: "Search file contents for a pattern",
		Parameters: objectSchema(map[string]PropertySchema{
			"pattern": stringProp("Regular expression to search for"),
			"path":    stringProp("File or directory to search"),
		}, "pattern"),
	},
	{
		Name:        "find",
		Description: "Find files matching a name pattern",
		Parameters: objectSchema(map[string]PropertySchema{
			"path": stringProp("Root directory for the search"),
			"name": stringProp("Name pattern to match"),
		}),
	},
	{
		Name:        "git",
		Description: "Run a git subcommand",
		Parameters: objectSchema(map[string]PropertySchema{
			"subcommand": stringProp("Git subcommand, e.g. status or log"),
			"args":       {Type: "array", Description: "Additional arguments", Items: &PropertySchema{Type: "string"}},
		}, "subcommand"),
	},
	{
		Name:        "npm",
		Description: "Run an npm command",
		Parameters: objectSchema(map[string]PropertySchema{
			"command": stringProp("npm command, e.g. install or run"),
			"args":    {Type: "array", Description: "Additional arguments", Items: &PropertySchema{Type: "string"}},
		}, "command"),
	},
	{
		Name:        "node",
		Description: "Evaluate JavaScript with node",
		Parameters: objectSchema(map[string]PropertySchema{
			"script": stringProp("Script source or file path"),
		}, "script"),
	},
	{
		Name:        "python",
		Description: "Evaluate Python code",
		Parameters: objectSchema(map[string]PropertySchema{
			"code": stringProp("Python source to evaluate"),
		}, "code"),
	},
	{
		Name:        "pip",
		Description: "Run a pip command",
		Parameters: objectSchema(map[string]PropertySchema{
			"command": stringProp("pip command, e.g. install"),
			"args":    {Type: "array", Description: "Additional arguments", Items: &PropertySchema{Type: "string"}},
		}, "command"),
	},
	{
		Name:        "curl",
		Description: "Fetch a URL",
		Parameters: objectSchema(map[string]PropertySchema{
			"url":    stringProp("URL to fetch"),
			"method": stringProp("HTTP method"),
		}, "url"),
	},
	{
		Name:        "mkdir",
		Description: "Create a directory",
		Parameters: objectSchema(map[string]PropertySchema{
			"path": stringProp("Directory to create"),
		}, "path"),
	},
	{
		Name:        "cp",
		Description: "Copy a file or directory",
		Parameters: objectSchema(map[string]PropertySchema{
			"source":      stringProp("Source path"),
			"destination": stringProp("Destination path"),
		}, "source", "destination"),
	},
	{
		Name:        "mv",
		Description: "Move or rename a file or directory",
		Parameters: objectSchema(map[string]PropertySchema{
			"source":      stringProp("Source path"),
			"destination": stringProp("Destination path"),
		}, "source", "destination"),
	},
	{
		Name:        "rm",
		Description: "Remove a file or directory",
		Parameters: objectSchema(map[string]PropertySchema{
			"path":      stringProp("Path to remove"),
			"recursive": boolProp("Remove directories recursively"),
		}, "path"),
	},
	{
		Name:        "echo",
		Description: "Print text",
		Parameters: objectSchema(map[string]PropertySchema{
			"text": stringProp("Text to print"),
		}, "text"),
	},
	{
		Name:        "which",
		Description: "Locate a command on PATH",
		Parameters: objectSchema(map[string]PropertySchema{
			"command": stringProp("Command name to locate"),
		}, "command"),
	},
}
