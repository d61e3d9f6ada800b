package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints step-by-step instructions for copying the session
// cookies out of a logged-in browser
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INSTAGRAM SESSION COOKIES")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stories and some posts are only visible to a logged-in account.")
	fmt.Fprintln(w, "igfetch reuses the cookies of a browser session you already have.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Log in at https://www.instagram.com")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS)")
	fmt.Fprintln(w, "3. Application (Chrome) or Storage (Firefox) > Cookies > https://www.instagram.com")
	fmt.Fprintln(w, "4. Copy the values of:")
	fmt.Fprintln(w, "     sessionid   long value containing %3A")
	fmt.Fprintln(w, "     csrftoken   32 characters")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Copy only the value, without quotes or semicolons. Instagram rotates")
	fmt.Fprintln(w, "csrftoken over time; igfetch stores the rotated value for you.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These cookies grant full access to the account. Never share them.")
	fmt.Fprintln(w, rule)
}

// WriteQuickGuide prints the one-line version of the cookie guide
func WriteQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 > Application > Cookies > instagram.com: copy sessionid and csrftoken")
	fmt.Fprintln(w, "Type 'help' for detailed instructions")
}
