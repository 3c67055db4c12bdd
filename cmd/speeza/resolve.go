package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/speeza"
	"github.com/aretw0/speeza/pkg/notes"
)

// findNote accepts a full id or a unique id prefix.
func findNote(ctx context.Context, app *speeza.App, ref string) notes.Note {
	if id, err := uuid.Parse(ref); err == nil {
		n, err := app.Library.Note(ctx, id)
		if err != nil {
			fatal("Failed to read note", err)
		}
		return n
	}

	all, err := app.Library.Notes(ctx)
	if err != nil {
		fatal("Failed to list notes", err)
	}
	var matches []notes.Note
	for _, n := range all {
		if strings.HasPrefix(n.ID.String(), ref) {
			matches = append(matches, n)
		}
	}
	switch len(matches) {
	case 0:
		fatal("Note not found", fmt.Errorf("no note matches %q", ref))
	case 1:
	default:
		fatal("Ambiguous note", fmt.Errorf("%q matches %d notes", ref, len(matches)))
	}
	return matches[0]
}

// findGroup accepts a full id, a unique id prefix or a unique name.
func findGroup(ctx context.Context, app *speeza.App, ref string) notes.Group {
	if id, err := uuid.Parse(ref); err == nil {
		g, err := app.Library.Group(ctx, id)
		if err != nil {
			fatal("Failed to read group", err)
		}
		return g
	}

	all, err := app.Library.Groups(ctx)
	if err != nil {
		fatal("Failed to list groups", err)
	}
	var matches []notes.Group
	for _, g := range all {
		if g.Name == ref || strings.HasPrefix(g.ID.String(), ref) {
			matches = append(matches, g)
		}
	}
	switch len(matches) {
	case 0:
		fatal("Group not found", fmt.Errorf("no group matches %q", ref))
	case 1:
	default:
		fatal("Ambiguous group", fmt.Errorf("%q matches %d groups, use the id", ref, len(matches)))
	}
	return matches[0]
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
