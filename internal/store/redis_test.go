package store

import "testing"

func TestKeyNamespacing(t *testing.T) {
	if got := Key("marks"); got != "classattend:marks" {
		t.Fatalf("Key(\"marks\") = %q", got)
	}
	if got := Key("rl:1.2.3.4"); got != "classattend:rl:1.2.3.4" {
		t.Fatalf("Key(\"rl:1.2.3.4\") = %q", got)
	}
}
