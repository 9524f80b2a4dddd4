package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"NAME", "RETURNS"}, &TableOptions{NoColor: true})
	table.AddRow("users_table", "[users_table]")
	table.AddRow("orders_table", "[orders_table]")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "NAME          RETURNS" {
		t.Errorf("unexpected header line %q", lines[0])
	}
	if !strings.Contains(lines[1], "─") {
		t.Errorf("expected separator, got %q", lines[1])
	}
	if lines[2] != "users_table   [users_table]" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[3] != "orders_table  [orders_table]" {
		t.Errorf("unexpected row %q", lines[3])
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestTable_ExtraCellsDropped(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"A"}, nil)
	table.AddRow("x", "ignored")
	table.Render()

	if strings.Contains(buf.String(), "ignored") {
		t.Errorf("expected extra cell to be dropped, got %q", buf.String())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, &TableOptions{NoColor: true}).Render()

	if buf.Len() != 0 {
		t.Errorf("expected empty output for table with no headers, got: %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("Address", "localhost:4000")
	kv.AddRow("Auth", "disabled")
	kv.Render()

	want := "Address: localhost:4000\nAuth:    disabled\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	section := NewSection(&buf, "type users_table", true)
	section.AddLine("id: Int")
	section.AddLine("name: String")
	section.Render()

	want := "type users_table\n  id: Int\n  name: String\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Queries", true)

	want := "Queries\n───────\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
