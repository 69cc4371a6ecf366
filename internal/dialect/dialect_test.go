package dialect

import "testing"

func TestFamilyMapping(t *testing.T) {
	cases := map[ID]Family{
		MySQL57:      MySQLFamily,
		MySQL80:      MySQLFamily,
		TiDB:         MySQLFamily,
		MariaDB:      MySQLFamily,
		PostgreSQL12: PostgreSQLFamily,
		PostgreSQL14: PostgreSQLFamily,
		CockroachDB:  PostgreSQLFamily,
	}
	for id, want := range cases {
		if got := id.Family(); got != want {
			t.Errorf("%s.Family() = %s, want %s", id, got, want)
		}
	}
}

func TestParseID(t *testing.T) {
	for _, id := range All {
		got, err := ParseID(id.String())
		if err != nil {
			t.Fatalf("ParseID(%s): %v", id.String(), err)
		}
		if got != id {
			t.Errorf("ParseID(%s) = %s, want %s", id.String(), got, id)
		}
	}
	if _, err := ParseID("oracle"); err == nil {
		t.Error("ParseID(oracle) should fail, oracle is not a supported dialect")
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := For(MySQL80).QuoteIdentifier("order"); got != "`order`" {
		t.Errorf("mysql quote = %s", got)
	}
	if got := For(PostgreSQL14).QuoteIdentifier("order"); got != `"order"` {
		t.Errorf("postgres quote = %s", got)
	}
}

func TestVersionGatedFeatures(t *testing.T) {
	if For(MySQL57).SupportsWindowFunctions() {
		t.Error("MySQL 5.7 must not support window functions")
	}
	if !For(MySQL80).SupportsWindowFunctions() {
		t.Error("MySQL 8.0 must support window functions")
	}
	if !For(MariaDB).SupportsReturning() {
		t.Error("MariaDB must support RETURNING")
	}
	if For(MySQL80).SupportsReturning() {
		t.Error("MySQL must not support RETURNING")
	}
}

func TestNormalizeType(t *testing.T) {
	if got := For(MySQL80).NormalizeType("int(11)"); got != "int" {
		t.Errorf("mysql NormalizeType(int(11)) = %s", got)
	}
	if got := For(PostgreSQL14).NormalizeType("character varying(255)"); got != "varchar" {
		t.Errorf("postgres NormalizeType = %s", got)
	}
}
