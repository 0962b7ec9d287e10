package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const appName = "okrboard"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: OKR progress tracking for companies and departments\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init      Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  serve     Run the HTTP API")
		fmt.Fprintln(os.Stderr, "  progress  Show the dashboard summary and progress tree")
		fmt.Fprintln(os.Stderr, "  export    Export a dataset to xlsx or yaml")
		fmt.Fprintln(os.Stderr, "  import    Import an OKR workbook")
		fmt.Fprintln(os.Stderr, "  template  Write a sample OKR or org chart workbook")
		fmt.Fprintln(os.Stderr, "  orgchart  Import an org chart workbook")
		fmt.Fprintln(os.Stderr, "  version   Save, list, show, diff and delete versions")
		fmt.Fprintln(os.Stderr, "  checkin   Record a key result check-in")
		fmt.Fprintln(os.Stderr, "  suggest   Suggest objectives or key results")
		fmt.Fprintln(os.Stderr, "  ask       Ask a question about the current OKRs")
		fmt.Fprintln(os.Stderr, "  audit     Show recorded audit events")
		fmt.Fprintln(os.Stderr, "  help      Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	commands := map[string]func([]string, string) error{
		"init":     runInit,
		"serve":    runServe,
		"progress": runProgress,
		"export":   runExport,
		"import":   runImport,
		"template": runTemplate,
		"orgchart": runOrgChart,
		"version":  runVersion,
		"checkin":  runCheckIn,
		"suggest":  runSuggest,
		"ask":      runAsk,
		"audit":    runAudit,
	}
	run, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if err := run(args[1:], workspacePath); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}
