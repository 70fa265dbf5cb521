// Command check-domains validates AMP allow-list files and shows how
// addresses would be classified with them.
//
//	check-domains domains.yaml [more.yaml...] [-- jane@gmail.com ...]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/blockedby/resume-refresh/internal/capability"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	files, addresses := splitArgs(args)
	if len(files) == 0 && len(addresses) == 0 {
		fmt.Fprintln(out, "No files to check.")
		return 0
	}

	failed := false
	var extra []string
	for _, path := range files {
		domains, err := capability.LoadDomains(path)
		if err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", path, err)
			failed = true
			continue
		}
		extra = append(extra, domains...)
		fmt.Fprintf(out, "✅ %s is valid (%d domains)\n", path, len(domains))
	}

	classifier := capability.New(extra...)
	for _, addr := range addresses {
		fmt.Fprintf(out, "%s -> %s\n", addr, classifier.Classify(addr))
	}

	if failed {
		return 1
	}
	return 0
}

// splitArgs separates files from the addresses listed after "--".
func splitArgs(args []string) (files, addresses []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}
