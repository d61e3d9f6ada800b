package auth

import (
	"net/http"
	"testing"
)

func TestCookieHeaderIsSorted(t *testing.T) {
	s := &Session{Cookies: map[string]string{
		"sessionid":  "sid",
		"csrftoken":  "csrf",
		"ds_user_id": "42",
	}}

	want := "csrftoken=csrf; ds_user_id=42; sessionid=sid"
	if got := s.CookieHeader(); got != want {
		t.Errorf("CookieHeader() = %q, want %q", got, want)
	}

	var empty *Session
	if empty.CookieHeader() != "" || empty.CSRFToken() != "" {
		t.Error("Expected nil session to render empty values")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := NewSession("sid", "csrf")
	original.Claim = "hmac.abc"

	clone := original.Clone()
	clone.Cookies["csrftoken"] = "changed"
	clone.Claim = "other"

	if original.CSRFToken() != "csrf" {
		t.Error("Mutating the clone's cookies changed the original")
	}
	if original.Claim != "hmac.abc" {
		t.Error("Mutating the clone's claim changed the original")
	}
}

func TestApplySetCookies(t *testing.T) {
	s := NewSession("sid", "old-csrf")
	s.Cookies["rur"] = "stale"

	header := http.Header{}
	header.Add("Set-Cookie", "csrftoken=new-csrf; Path=/; Secure")
	header.Add("Set-Cookie", "rur=deleted; Max-Age=0; Path=/")
	header.Add("Set-Cookie", "mid=abc; Path=/")

	if !s.ApplySetCookies(header) {
		t.Fatal("Expected ApplySetCookies to report a change")
	}
	if s.CSRFToken() != "new-csrf" {
		t.Errorf("Expected rotated csrftoken, got %s", s.CSRFToken())
	}
	if _, ok := s.Cookies["rur"]; ok {
		t.Error("Expected deleted cookie to be removed")
	}
	if s.Cookies["mid"] != "abc" {
		t.Error("Expected new cookie to be added")
	}
	if s.Cookies["sessionid"] != "sid" {
		t.Error("Expected untouched cookie to survive")
	}

	if s.ApplySetCookies(http.Header{}) {
		t.Error("Expected no change without Set-Cookie headers")
	}
}

func TestValid(t *testing.T) {
	if !NewSession("sid", "csrf").Valid() {
		t.Error("Expected session with both cookies to be valid")
	}
	if NewSession("", "csrf").Valid() {
		t.Error("Expected session without sessionid to be invalid")
	}
}

func TestSanitizeSession(t *testing.T) {
	s := NewSession("1234567890abcdef", "short")
	s.Claim = "hmac.AR0000000000000"

	masked := SanitizeSession(s)
	if masked.Cookies["sessionid"] != "1234...cdef" {
		t.Errorf("Unexpected masked sessionid %s", masked.Cookies["sessionid"])
	}
	if masked.Cookies["csrftoken"] != "********" {
		t.Errorf("Unexpected masked csrftoken %s", masked.Cookies["csrftoken"])
	}
	if masked.Claim == s.Claim {
		t.Error("Claim should be masked")
	}
	if s.Cookies["sessionid"] != "1234567890abcdef" {
		t.Error("SanitizeSession must not modify the original")
	}
	if SanitizeSession(nil) != nil {
		t.Error("Expected nil for nil session")
	}
}
