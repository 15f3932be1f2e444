package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kbassist/internal/cli"
	"github.com/hyperjump/kbassist/internal/library"
	"go.uber.org/zap"
)

func runPDF() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: kbassist pdf <upload|list|delete|backup|restore|backups|info> [flags] [args]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("pdf "+sub, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	output := fs.String("output", "text", "output format: text, compact or json")
	description := fs.String("description", "", "description recorded with uploaded files")
	name := fs.String("name", "", "backup directory name (default backup_<timestamp>)")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	opts := pdfOptions{description: *description, backupName: *name, format: outputFormat(*output)}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	lib := components.Library

	if err := pdfCommand(ctx, lib, sub, fs.Args(), opts); err != nil {
		fmt.Printf("pdf %s failed: %v\n", sub, err)
		os.Exit(1)
	}
}

type pdfOptions struct {
	description string
	backupName  string
	format      cli.OutputFormat
}

func pdfCommand(ctx context.Context, lib *library.Library, sub string, args []string, opts pdfOptions) error {
	switch sub {
	case "upload":
		if len(args) == 0 {
			return fmt.Errorf("at least one file is required")
		}
		files := make([]library.File, 0, len(args))
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			files = append(files, library.File{Name: filepath.Base(path), Description: opts.description, Reader: f})
		}
		results, err := lib.UploadMany(ctx, files)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Error != "" {
				failed++
				fmt.Printf("  %s: %s\n", r.Name, r.Error)
				continue
			}
			fmt.Printf("  %s -> %s\n", r.Name, r.Document.StoredName)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(results))
		}
		fmt.Println("Run \"kbassist ingest\" to rebuild the knowledge base.")
		return nil
	case "list":
		entries, err := lib.List(ctx)
		if err != nil {
			return err
		}
		return cli.WriteDocuments(os.Stdout, entries, opts.format)
	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("exactly one PDF name is required")
		}
		if err := lib.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	case "backup":
		m, err := lib.Backup(ctx, opts.backupName)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s with %d PDFs\n", m.BackupName, m.PDFCount)
		return nil
	case "restore":
		if len(args) != 1 {
			return fmt.Errorf("exactly one backup name is required")
		}
		n, err := lib.Restore(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d PDFs from %s\n", n, args[0])
		return nil
	case "backups":
		backups, err := lib.ListBackups()
		if err != nil {
			return err
		}
		return cli.WriteBackups(os.Stdout, backups, opts.format)
	case "info":
		info, err := lib.Info(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("PDFs:    %d (%s)\nDir:     %s\nBackups: %d\n",
			info.PDFCount, cli.FormatBytes(info.TotalBytes), info.PDFDir, info.BackupCount)
		return nil
	}
	return fmt.Errorf("unknown pdf command %q", sub)
}
