package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/speeza"
	"github.com/aretw0/speeza/pkg/notes"
	"github.com/aretw0/speeza/pkg/playback"
)

var (
	noteTitle   string
	noteText    string
	noteLang    string
	noteVoice   string
	noteRate    float64
	noteGroup   string
	noteUngroup bool
	noteJSON    bool
	noteSort    string
	noteUncat   bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Create, edit, list and play notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Create a note (text from arguments or stdin)",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		s := app.NewSession()
		enabled, err := app.EnabledLanguages(ctx)
		if err != nil {
			fatal("Failed to read language preferences", err)
		}
		s.ApplyEnabledLanguages(enabled)

		s.SetText(readText(args))
		applyDraftFlags(ctx, cmd, app, s)

		n, err := s.CommitCreate(ctx, app.Library)
		if err != nil {
			fatal("Failed to create note", err)
		}
		fmt.Printf("Note created: %s\n", n.ID)
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		n := findNote(ctx, app, args[0])
		s := app.NewSession()
		s.LoadFromNote(n)

		if cmd.Flags().Changed("text") {
			s.SetText(noteText)
		}
		applyDraftFlags(ctx, cmd, app, s)

		if !s.HasChanges() {
			fmt.Println("No changes.")
			return
		}
		if _, err := s.CommitUpdate(ctx, app.Library, n.ID); err != nil {
			fatal("Failed to update note", err)
		}
		fmt.Printf("Note updated: %s\n", n.ID)
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		n := findNote(ctx, app, args[0])
		if noteJSON {
			printJSON(noteView(n))
			return
		}

		fmt.Printf("ID:       %s\n", n.ID)
		fmt.Printf("Title:    %s\n", n.DisplayTitle())
		fmt.Printf("Language: %s\n", n.Language)
		fmt.Printf("Voice:    %s\n", n.Voice)
		fmt.Printf("Rate:     %.2f\n", n.Rate)
		if n.GroupID.Valid {
			fmt.Printf("Group:    %s\n", n.GroupID.UUID)
		}
		fmt.Printf("Updated:  %s\n\n", n.UpdatedAt.Format("2006-01-02 15:04"))
		fmt.Println(n.Text)
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		all, err := app.Library.Notes(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}

		switch {
		case noteUncat:
			all = notes.ByGroup(all, notes.Uncategorized)
		case noteGroup != "":
			g := findGroup(ctx, app, noteGroup)
			all = notes.ByGroup(all, notes.ByID(g.ID))
		}

		switch noteSort {
		case "title":
			all = notes.SortedByTitle(all)
		case "recent":
			all = notes.Recent(all, len(all))
		case "created", "":
		default:
			fatal("Invalid --sort", fmt.Errorf("unknown order %q (created, title, recent)", noteSort))
		}

		printNotes(all)
	},
}

var noteRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently updated notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		recent, err := app.Recent(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}
		printNotes(recent)
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		n := findNote(ctx, app, args[0])
		if err := app.Library.DeleteNote(ctx, n.ID); err != nil {
			fatal("Failed to delete note", err)
		}
		fmt.Printf("Note deleted: %s\n", n.ID)
	},
}

var notePlayCmd = &cobra.Command{
	Use:   "play <id>",
	Short: "Read a note aloud and wait until it finishes (Ctrl+C stops)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := openApp(ctx, cmd)
		defer app.Close()

		n := findNote(ctx, app, args[0])
		speak(ctx, app.Quick, n.SpeechSource())
	},
}

var sayCmd = &cobra.Command{
	Use:   "say [text...]",
	Short: "Speak text without saving it",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app := openApp(ctx, cmd)
		defer app.Close()

		s := app.NewSession()
		s.SetText(readText(args))
		applyDraftFlags(ctx, cmd, app, s)
		if !s.ValidateForSave() {
			fatal("Nothing to say", fmt.Errorf("text is blank"))
		}
		speak(ctx, app.Preview, s.SpeechSource())
	},
}

func init() {
	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd, sayCmd} {
		c.Flags().StringVar(&noteTitle, "title", "", "Note title")
		c.Flags().StringVar(&noteLang, "lang", "", "Language code (e.g. en-US)")
		c.Flags().StringVar(&noteVoice, "voice", "", "Voice name (default: first voice of the language)")
		c.Flags().Float64Var(&noteRate, "rate", 0.5, "Speech rate between 0.1 and 1.0")
	}
	for _, c := range []*cobra.Command{noteAddCmd, noteEditCmd} {
		c.Flags().StringVar(&noteGroup, "group", "", "Group name or id")
	}
	noteEditCmd.Flags().StringVar(&noteText, "text", "", "New note text")
	noteEditCmd.Flags().BoolVar(&noteUngroup, "ungroup", false, "Remove the note from its group")

	noteShowCmd.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	noteListCmd.Flags().StringVar(&noteGroup, "group", "", "Only notes of this group (name or id)")
	noteListCmd.Flags().BoolVar(&noteUncat, "uncategorized", false, "Only notes without a group")
	noteListCmd.Flags().StringVar(&noteSort, "sort", "created", "Order: created, title or recent")
	for _, c := range []*cobra.Command{noteListCmd, noteRecentCmd} {
		c.Flags().BoolVar(&noteJSON, "json", false, "Output in JSON format")
	}

	noteCmd.AddCommand(noteAddCmd, noteEditCmd, noteShowCmd, noteListCmd, noteRecentCmd, noteDeleteCmd, notePlayCmd)
	rootCmd.AddCommand(noteCmd, sayCmd)
}

// applyDraftFlags copies the explicitly set editing flags into the draft.
// The language goes first since it also picks a default voice.
func applyDraftFlags(ctx context.Context, cmd *cobra.Command, app *speeza.App, s *notes.Session) {
	flags := cmd.Flags()
	if flags.Changed("lang") {
		s.SetLanguage(noteLang)
	}
	if flags.Changed("voice") {
		s.SetVoice(noteVoice)
	}
	if flags.Changed("title") {
		s.SetTitle(noteTitle)
	}
	if flags.Changed("rate") {
		s.SetRate(noteRate)
	}
	if flags.Changed("group") {
		g := findGroup(ctx, app, noteGroup)
		s.SetGroup(notes.ByID(g.ID))
	}
	if noteUngroup {
		s.SetGroup(notes.Uncategorized)
	}
}

// readText joins args, or reads stdin when there are none.
func readText(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal("Failed to read stdin", err)
	}
	return strings.TrimRight(string(data), "\n")
}

// speak plays src and blocks until it ends or ctx is cancelled.
func speak(ctx context.Context, c *playback.Controller, src playback.Source) {
	if c.Play(ctx, src) != playback.Speaking {
		fatal("Playback did not start", fmt.Errorf("speech engine unavailable"))
	}
	if err := c.Wait(ctx, 0); err != nil {
		c.Stop()
		fmt.Println()
		fmt.Println("Stopped.")
	}
}

type noteJSONView struct {
	ID        string  `json:"id"`
	Title     string  `json:"title,omitempty"`
	Text      string  `json:"text"`
	Language  string  `json:"language"`
	Voice     string  `json:"voice"`
	Rate      float64 `json:"rate"`
	GroupID   string  `json:"group_id,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func noteView(n notes.Note) noteJSONView {
	v := noteJSONView{
		ID:        n.ID.String(),
		Title:     n.Title,
		Text:      n.Text,
		Language:  n.Language,
		Voice:     n.Voice,
		Rate:      n.Rate,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
	if n.GroupID.Valid {
		v.GroupID = n.GroupID.UUID.String()
	}
	return v
}

func printNotes(list []notes.Note) {
	if noteJSON {
		views := make([]noteJSONView, 0, len(list))
		for _, n := range list {
			views = append(views, noteView(n))
		}
		printJSON(views)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	for _, n := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(n.ID), n.Language, n.UpdatedAt.Format("2006-01-02 15:04"), n.DisplayTitle())
	}
	w.Flush()
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Error encoding JSON", err)
	}
}
