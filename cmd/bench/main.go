package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/speeza"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	// 1. Setup Namespace
	benchDir, err := os.MkdirTemp("", "speeza_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	fmt.Printf("Generating %d notes in %s...\n", *count, benchDir)
	startGen := time.Now()

	// Direct writes simulate an existing vault the index has never seen.
	notesDir := filepath.Join(benchDir, "notes")
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		panic(err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i := 0; i < *count; i++ {
		id := uuid.New()
		content := fmt.Sprintf("---\nid: %s\ntitle: Note %d\nlanguage: en-US\nvoice: Default\nrate: 0.5\ncreated_at: %s\nupdated_at: %s\n---\nThis is benchmark note number %d.", id, i, now, now, i)
		filename := filepath.Join(notesDir, id.String()+".md")
		if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() *speeza.App {
		app, err := speeza.Open(context.Background(), benchDir,
			speeza.WithLogger(logger),
			speeza.WithEngineName(speeza.EngineNoop),
			speeza.WithDevSafety(false),
		)
		if err != nil {
			panic(err)
		}
		return app
	}

	ctx := context.Background()

	// Run 1: Cold (populates .speeza/index.json)
	fmt.Println("Running Notes (Run 1 - Cold)...")
	app := open()
	startList := time.Now()
	list, err := app.Library.Notes(ctx)
	if err != nil {
		panic(err)
	}
	duration := time.Since(startList)
	fmt.Printf("Run 1 Result: %v (Items: %d)\n", duration, len(list))
	app.Close()

	// Run 2: Warm. A fresh App simulates a new CLI invocation reading the
	// persisted index.
	fmt.Println("Running Notes (Run 2 - Warm)...")
	app2 := open()
	defer app2.Close()
	startList2 := time.Now()
	list2, err := app2.Library.Notes(ctx)
	if err != nil {
		panic(err)
	}
	duration2 := time.Since(startList2)
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", duration2, len(list2))

	recent, err := app2.Recent(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d notes):\n", *count)
	fmt.Printf("  Cold: %v\n", duration)
	fmt.Printf("  Warm: %v\n", duration2)
	fmt.Printf("  Recent: %d\n", len(recent))
	fmt.Printf("--------------------------------------------------\n")
}
