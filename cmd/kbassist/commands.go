package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/hyperjump/kbassist/internal/chat"
	"github.com/hyperjump/kbassist/internal/cli"
	"github.com/hyperjump/kbassist/internal/knowledge"
	"github.com/hyperjump/kbassist/internal/models"
	"github.com/hyperjump/kbassist/internal/retrieval"
	"go.uber.org/zap"
)

// buildQuery joins positional arguments into one query.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query
// to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func outputFormat(s string) cli.OutputFormat {
	f, err := cli.ParseFormat(s)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return f
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL; empty answers locally")
	output := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := outputFormat(*output)
	question := buildQuery(fs.Args())

	if *serverURL != "" {
		if question == "" {
			fmt.Println("A question is required with --server")
			os.Exit(1)
		}
		var resp models.ChatResponse
		if err := postJSON(*serverURL+"/api/v1/chat", &models.ChatRequest{Question: question}, &resp); err != nil {
			fmt.Printf("Ask failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteAnswer(os.Stdout, &resp, format)
		return
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	components.Base.Load(ctx)
	chain, err := components.NewChain()
	if err != nil {
		fmt.Printf("Failed to initialize LLM client: %v\n", err)
		os.Exit(1)
	}

	mem := chat.NewMemory()
	if question != "" {
		if err := ask(ctx, chain, mem, question, format); err != nil {
			fmt.Printf("Ask failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	repl(ctx, chain, mem, os.Stdin, format)
}

func ask(ctx context.Context, chain *chat.Chain, mem *chat.Memory, question string, format cli.OutputFormat) error {
	ans, err := chain.Ask(ctx, mem, question)
	if err != nil {
		return err
	}
	return cli.WriteAnswer(os.Stdout, &models.ChatResponse{Answer: ans.Text, Sources: rankChunks(ans.Sources)}, format)
}

// repl reads questions line by line until EOF or "exit".
func repl(ctx context.Context, chain *chat.Chain, mem *chat.Memory, in io.Reader, format cli.OutputFormat) {
	prompt := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Println("Ask a question about the knowledge base. Type \"exit\" to quit, \"clear\" to reset the conversation.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print(prompt("You: "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "":
			continue
		case "exit", "quit":
			return
		case "clear":
			mem.Clear()
			fmt.Println("Conversation cleared.")
			continue
		}
		if err := ask(ctx, chain, mem, q, format); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func rankChunks(docs []retrieval.Document) []*models.RetrievedChunk {
	out := make([]*models.RetrievedChunk, len(docs))
	for i, d := range docs {
		out[i] = &models.RetrievedChunk{Content: d.Content, Score: d.Score, Rank: i + 1}
	}
	return out
}

func runRetrieve() {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL; empty retrieves locally")
	output := fs.String("output", "text", "output format: text, compact or json")
	k := fs.Int("k", 0, "number of chunks (default from config)")
	threshold := fs.Float64("score-threshold", -1, "minimum similarity score (default from config)")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	format := outputFormat(*output)

	query := &models.RetrieveQuery{Query: buildQuery(fs.Args()), K: *k}
	if *threshold >= 0 {
		query.ScoreThreshold = threshold
	}

	if *serverURL != "" {
		var resp models.RetrieveResponse
		if err := postJSON(*serverURL+"/api/v1/retrieve", query, &resp); err != nil {
			fmt.Printf("Retrieve failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteRetrieveResults(os.Stdout, &resp, format)
		return
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if err := query.Validate(cfg.Search.K, cfg.Search.ScoreThreshold); err != nil {
		fmt.Printf("Invalid query: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	if components.Base.Load(ctx) == knowledge.SourceNone {
		fmt.Println("No knowledge base found. Run \"kbassist ingest\" first.")
		os.Exit(1)
	}

	start := time.Now()
	docs := components.Retriever().RetrieveWith(query.Query, retrieval.Config{K: query.K, ScoreThreshold: *query.ScoreThreshold})
	results := rankChunks(docs)
	_ = cli.WriteRetrieveResults(os.Stdout, &models.RetrieveResponse{
		Query:     query.Query,
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
	}, format)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	output := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	res, err := components.Builder.Build(ctx, cfg.Storage.PDFDir)
	if err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		_ = json.NewEncoder(os.Stdout).Encode(res.Manifest)
		return
	}
	fmt.Printf("Indexed %d PDFs into %d chunks (%s)\n", res.Manifest.NumPDFs, res.Manifest.NumChunks, res.Manifest.StorageType)
	for _, name := range res.Skipped {
		fmt.Printf("  skipped: %s\n", name)
	}
	if res.MirrorErr != nil {
		fmt.Printf("  mirror upload failed: %v\n", res.MirrorErr)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	output := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	components.Base.Load(ctx)
	_ = cli.WriteStatus(os.Stdout, components.Base.Status(ctx), format)
}

func runValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		_ = cli.WriteValidation(os.Stdout, []string{err.Error()}, format)
		os.Exit(1)
	}
	problems := knowledge.Validate(cfg)
	_ = cli.WriteValidation(os.Stdout, problems, format)
	if len(problems) > 0 {
		os.Exit(1)
	}
}

// postJSON sends body to url and decodes a 200 response into out. Error
// responses are reported with the server's message.
func postJSON(url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
