// Command modpack inspects and installs game mod packages.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/modworks/go-modpack"
	"github.com/modworks/go-modpack/archive"
	"github.com/modworks/go-modpack/modmeta"
)

var (
	tree       = flag.Bool("tree", false, "print the merged package contents as a tree")
	installDir = flag.String("install", "", "extract the packages into this game directory")
	version    = flag.Bool("version", false, "print version and exit")
)

const appVersion = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <package>...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inspects and installs game mod packages (directories or zip files).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -tree MyMod.zip\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -install /games/darktide MyMod.zip OtherMod/\n", os.Args[0])
	}
	flag.Parse()

	if *version {
		fmt.Printf("modpack version %s\n", appVersion)
		os.Exit(0)
	}

	sources := flag.Args()
	if len(sources) == 0 {
		fmt.Fprintf(os.Stderr, "Error: at least one package required\n")
		flag.Usage()
		os.Exit(1)
	}
	if !*tree && *installDir == "" {
		fmt.Fprintf(os.Stderr, "Error: nothing to do (use -tree or -install)\n")
		flag.Usage()
		os.Exit(1)
	}

	pack, err := modpack.New(sources, modpack.DetectPrefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening packages: %v\n", err)
		os.Exit(1)
	}
	defer pack.Close()

	view, err := buildView(pack)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading packages: %v\n", err)
		os.Exit(1)
	}

	if *tree {
		printTree(view.List())
	}

	if *installDir != "" {
		copied, err := install(view, *installDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error installing: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Installed %d package(s) into %s\n", copied, *installDir)
		reportMods(*installDir)
	}
}

// buildView bridges the worker callback back onto the main goroutine.
func buildView(pack *modpack.Archive) (*modpack.View, error) {
	type result struct {
		view *modpack.View
		err  error
	}
	done := make(chan result, 1)
	pack.View(func(v *modpack.View, err error) {
		done <- result{v, err}
	})
	r := <-done
	return r.view, r.err
}

func install(view *modpack.View, dest string) (int, error) {
	type result struct {
		copied int
		err    error
	}
	done := make(chan result, 1)
	view.Copy(dest, func(copied int, err error) {
		done <- result{copied, err}
	})
	r := <-done
	return r.copied, r.err
}

func printTree(list *archive.List) {
	list.Walk(func(name string, kind archive.Kind, depth int) {
		suffix := ""
		if kind.IsDir() {
			suffix = "/"
		}
		fmt.Printf("%s%s%s\n", strings.Repeat("  ", depth), name, suffix)
	})
}

// reportMods lists what the mods directory holds after an install. Scan
// failures are not fatal at this point; the copy itself already succeeded.
func reportMods(dest string) {
	found, err := modmeta.Scan(dest + "/mods")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: scanning installed mods: %v\n", err)
		return
	}
	if len(found) == 0 {
		return
	}
	fmt.Println("\nInstalled mods:")
	for i := range found {
		name, ok := found[i].Name()
		if !ok {
			continue
		}
		if v := found[i].Version; v != "" {
			fmt.Printf("  %s (%s)\n", name, v)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
}
