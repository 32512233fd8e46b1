package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/vault"
)

const shortIDLen = 8

// resolveID finds the record whose id equals ref or uniquely starts with it.
func resolveID(records []vault.Record, ref string) (vault.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return vault.Record{}, fmt.Errorf("record id is required")
	}

	var matches []vault.Record
	for _, r := range records {
		if r.ID == ref {
			return r, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return vault.Record{}, fmt.Errorf("%w: %s", session.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return vault.Record{}, fmt.Errorf("id prefix %q matches %d records", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func printRecords(w io.Writer, records []vault.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUSERNAME\tURL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(r.ID), r.Name, r.Username, r.URL)
	}
	tw.Flush()
}

func printRecord(w io.Writer, r vault.Record, reveal bool) {
	password := strings.Repeat("*", 8)
	if reveal {
		password = r.Password
	}
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintf(w, "Name:      %s\n", r.Name)
	fmt.Fprintf(w, "Username:  %s\n", r.Username)
	fmt.Fprintf(w, "Password:  %s\n", password)
	if r.URL != "" {
		fmt.Fprintf(w, "URL:       %s\n", r.URL)
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "Notes:     %s\n", r.Notes)
	}
	fmt.Fprintf(w, "Created:   %s\n", r.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Updated:   %s\n", r.UpdatedAt.Local().Format(time.DateTime))
}
