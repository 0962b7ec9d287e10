package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"okrboard/internal/okr"
	"okrboard/internal/session"
)

func runVersion(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s version: missing subcommand", appName)
	}

	switch args[0] {
	case "save":
		return runVersionSave(args[1:], workspacePath)
	case "list":
		return runVersionList(args[1:], workspacePath)
	case "show":
		return runVersionShow(args[1:], workspacePath)
	case "diff":
		return runVersionDiff(args[1:], workspacePath)
	case "delete":
		return runVersionDelete(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s version: unknown subcommand %q", appName, args[0])
	}
}

func runVersionSave(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("version save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	name := fs.String("name", "", "Version name (default: Versiyon <n> - <date>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		v, err := s.Versions.Save(ctx, *name)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Saved version %q (%s)\n", v.Name, v.ID)
		return nil
	})
}

func runVersionList(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("version list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		list := s.Versions.List()
		if len(list) == 0 {
			fmt.Fprintln(os.Stdout, "No versions.")
			return nil
		}
		printVersions(os.Stdout, list)
		return nil
	})
}

func printVersions(w io.Writer, list []okr.Version) {
	for _, v := range list {
		fmt.Fprintf(w, "%s  %s  %s  (%d key results)\n", v.ID, v.CreatedAt.Local().Format("02.01.2006 15:04"), v.Name, v.Data.KRCount())
	}
}

func runVersionShow(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("version show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("version show requires a version name or id")
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		if err := s.Store.SetView(strings.TrimSpace(fs.Arg(0))); err != nil {
			return err
		}
		ds := s.Store.Read()
		printSummary(os.Stdout, s.Summary())
		printTree(os.Stdout, ds)
		return nil
	})
}

func runVersionDiff(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("version diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("version diff requires a version name or id")
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		text, err := s.Versions.Diff(fs.Arg(0))
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Fprintln(os.Stdout, "No changes since this version.")
			return nil
		}
		fmt.Fprint(os.Stdout, text)
		return nil
	})
}

func runVersionDelete(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("version delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("version delete requires a version id")
	}
	return withSession(workspacePath, common, func(ctx context.Context, a *app, s *session.Session) error {
		id := fs.Arg(0)
		if err := s.Versions.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Deleted version %s\n", id)
		return nil
	})
}
