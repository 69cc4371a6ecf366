package grammar

import (
	"context"
	"testing"

	"github.com/dosco/sqlls/internal/dialect"
)

func TestParseCleanQuery(t *testing.T) {
	src := []byte("SELECT id, name FROM users WHERE id = 1")
	tree, err := Parse(context.Background(), src, dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if tree.Root() == nil {
		t.Fatal("expected a root node")
	}
	if tree.Quality != Clean {
		t.Errorf("Quality = %s, want clean", tree.Quality)
	}
}

func TestParseNeverFails(t *testing.T) {
	src := []byte("SELET * FROM users")
	tree, err := Parse(context.Background(), src, dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("Parse must never return an error on malformed input: %v", err)
	}
	defer tree.Close()

	if tree.Root() == nil {
		t.Fatal("malformed input must still produce a tree")
	}
	if tree.Quality == Clean {
		t.Error("a typo'd keyword should not grade Clean")
	}
}

func TestByteRangesCoverSource(t *testing.T) {
	src := []byte("SELECT a FROM t")
	tree, err := Parse(context.Background(), src, dialect.PostgreSQL14, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	root := tree.Root()
	if root.StartByte() != 0 {
		t.Errorf("root StartByte = %d, want 0", root.StartByte())
	}
	if int(root.EndByte()) != len(src) {
		t.Errorf("root EndByte = %d, want %d", root.EndByte(), len(src))
	}
}

func TestReparseEqualsFreshParse(t *testing.T) {
	src1 := []byte("SELECT id FROM users")
	tree1, err := Parse(context.Background(), src1, dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// insert ", name" right after "id" (byte 9)
	src2 := []byte("SELECT id, name FROM users")
	ApplyEdit(tree1, Edit{
		StartByte:   9,
		OldEndByte:  9,
		NewEndByte:  15,
		StartPoint:  Point{Row: 0, Column: 9},
		OldEndPoint: Point{Row: 0, Column: 9},
		NewEndPoint: Point{Row: 0, Column: 15},
	})
	incremental, err := Parse(context.Background(), src2, dialect.MySQL80, tree1)
	if err != nil {
		t.Fatalf("incremental Parse: %v", err)
	}
	defer incremental.Close()

	fresh, err := Parse(context.Background(), src2, dialect.MySQL80, nil)
	if err != nil {
		t.Fatalf("fresh Parse: %v", err)
	}
	defer fresh.Close()

	if incremental.Root().Text() != fresh.Root().Text() {
		t.Errorf("incremental and fresh parse text differ")
	}

	var sameShape func(a, b *Node) bool
	sameShape = func(a, b *Node) bool {
		if a.Kind() != b.Kind() || a.StartByte() != b.StartByte() || a.EndByte() != b.EndByte() || a.ChildCount() != b.ChildCount() {
			return false
		}
		for i := 0; i < a.ChildCount(); i++ {
			if !sameShape(a.Child(i), b.Child(i)) {
				return false
			}
		}
		return true
	}
	if !sameShape(incremental.Root(), fresh.Root()) {
		t.Errorf("incremental and fresh parse trees differ in shape")
	}
}

func TestClassifyTokenMySQLBacktick(t *testing.T) {
	if ClassifyToken("`order`", dialect.MySQL80) != ClassQuotedIdentifier {
		t.Error("backtick-quoted identifier should classify as ClassQuotedIdentifier under MySQL")
	}
	if ClassifyToken(`"order"`, dialect.PostgreSQL14) != ClassQuotedIdentifier {
		t.Error("double-quoted identifier should classify as ClassQuotedIdentifier under PostgreSQL")
	}
}

func TestUnquoteIdentifier(t *testing.T) {
	if got := UnquoteIdentifier("`my``col`", dialect.MySQL80); got != "my`col" {
		t.Errorf("UnquoteIdentifier mysql = %q", got)
	}
	if got := UnquoteIdentifier(`"my""col"`, dialect.PostgreSQL14); got != `my"col` {
		t.Errorf("UnquoteIdentifier postgres = %q", got)
	}
}
