package templates

import (
	"strings"
	"testing"
)

func TestDefault_HasAllKeys(t *testing.T) {
	s := Default()
	keys := []string{
		"start", "help", "help_error", "create_empty", "change_empty", "alias_empty",
		"name_fail", "users_fail", "create_exists", "change_missing", "singleton",
		"reserved", "admins_fail", "admins_fetch_fail", "party_empty", "party_request_fail", "party_request_fails",
		"party_misspell", "misspell_button", "list_success", "list_args_success", "list_empty",
		"list_args_empty", "list_admins", "delete_empty", "delete_success", "delete_missing",
		"clear_success", "sender_fail", "sender_fail_callback", "permission_deny", "permission_deny_callback",
		"callback_alias_deleted", "callback_party_deleted", "create_success", "change_success",
		"add_success", "remove_success", "remove_deleted", "alias_success", "rude_fail",
		"rude_now", "rude_already", "feedback_empty", "feedback_success", "feedback_limited",
		"internal_error",
	}
	for _, k := range keys {
		if !s.Has(k) {
			t.Errorf("missing template %q", k)
		}
	}
	for _, cmd := range []string{"start", "help", "list", "party", "create", "change", "add", "remove", "alias", "delete", "clear", "rude", "feedback"} {
		if _, ok := s.Help(cmd); !ok {
			t.Errorf("missing help for %q", cmd)
		}
	}
}

func TestGet_Formats(t *testing.T) {
	s := Default()
	if got := s.Get("delete_success", "team"); got != "Party team is just a history now 👍" {
		t.Fatalf("unexpected render: %q", got)
	}
	if got := s.Get("misspell_button", "team"); got != "@team" {
		t.Fatalf("unexpected button label: %q", got)
	}
	if got := s.Get("no_such_key"); got != "no_such_key" {
		t.Fatalf("unknown key should render as itself, got %q", got)
	}
	if strings.HasSuffix(s.Get("start"), "\n") {
		t.Fatalf("block scalars should be chomped")
	}
}

func TestHelp_SlashAndCase(t *testing.T) {
	s := Default()
	a, ok1 := s.Help("/Create")
	b, ok2 := s.Help("create")
	if !ok1 || !ok2 || a != b {
		t.Fatalf("Help should ignore slash and case")
	}
	if _, ok := s.Help("nope"); ok {
		t.Fatalf("unknown command must report false")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("- a\n- b\n")); err == nil {
		t.Fatalf("expected error for non-mapping document")
	}
}
