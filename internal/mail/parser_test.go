package mail

import (
	"strings"
	"testing"
	"time"
)

func plainMessage(body string) []byte {
	return []byte("From: Alice <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Lunch plans\r\n" +
		"Date: Mon, 02 Jun 2025 10:30:00 +0000\r\n" +
		"Message-ID: <abc123@example.com>\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body)
}

func TestParseMessage_PlainText(t *testing.T) {
	body := "Just checking in about lunch tomorrow."
	summary := ParseMessage(42, plainMessage(body))

	if summary.UID != 42 {
		t.Errorf("UID = %d, want 42", summary.UID)
	}
	if summary.Subject != "Lunch plans" {
		t.Errorf("Subject = %q, want %q", summary.Subject, "Lunch plans")
	}
	if !strings.Contains(summary.Sender, "alice@example.com") {
		t.Errorf("Sender = %q, want it to contain alice@example.com", summary.Sender)
	}
	if summary.Snippet != body {
		t.Errorf("Snippet = %q, want %q", summary.Snippet, body)
	}
	if summary.HasAttachments {
		t.Error("HasAttachments = true for single-part message")
	}

	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if !summary.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", summary.Date, want)
	}
}

func TestParseMessage_SnippetTruncation(t *testing.T) {
	body := strings.Repeat("word ", 200) // 1000 chars
	summary := ParseMessage(1, plainMessage(body))

	if len(summary.Snippet) > SnippetMaxChars {
		t.Errorf("Snippet length = %d, want <= %d", len(summary.Snippet), SnippetMaxChars)
	}
	if !strings.HasSuffix(summary.Snippet, "...") {
		t.Errorf("Snippet %q should end with ellipsis marker", summary.Snippet)
	}
	if strings.HasSuffix(summary.Snippet, "wor...") {
		t.Errorf("Snippet %q broke mid-word", summary.Snippet)
	}
}

func TestParseMessage_HTMLFallback(t *testing.T) {
	raw := []byte("From: shop@example.com\r\n" +
		"Subject: Sale\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>body { color: red; } .secret-css { display: none }</style></head>" +
		"<body><script>alert('tracking-code')</script>" +
		"<p>Visible&nbsp;offer &amp; details &lt;here&gt;</p></body></html>")

	summary := ParseMessage(7, raw)

	if got, want := summary.Snippet, "Visible offer & details <here>"; got != want {
		t.Errorf("Snippet = %q, want %q", got, want)
	}
	for _, leaked := range []string{"secret-css", "tracking-code", "color: red", "<p>"} {
		if strings.Contains(summary.Snippet, leaked) {
			t.Errorf("Snippet leaked %q: %q", leaked, summary.Snippet)
		}
	}
}

func TestParseMessage_PrefersPlainOverHTML(t *testing.T) {
	raw := []byte("From: a@example.com\r\n" +
		"Subject: Multi\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=SPLIT\r\n" +
		"\r\n" +
		"--SPLIT\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"the plain version\r\n" +
		"--SPLIT\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>the html version</p>\r\n" +
		"--SPLIT--\r\n")

	summary := ParseMessage(8, raw)
	if summary.Snippet != "the plain version" {
		t.Errorf("Snippet = %q, want the plain part", summary.Snippet)
	}
}

func TestParseMessage_AttachmentDetection(t *testing.T) {
	raw := []byte("From: a@example.com\r\n" +
		"Subject: Report attached\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=SPLIT\r\n" +
		"\r\n" +
		"--SPLIT\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"see attached\r\n" +
		"--SPLIT\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
		"\r\n" +
		"%PDF-fake\r\n" +
		"--SPLIT--\r\n")

	summary := ParseMessage(9, raw)
	if !summary.HasAttachments {
		t.Error("HasAttachments = false, want true")
	}
	if summary.Snippet != "see attached" {
		t.Errorf("Snippet = %q, want %q", summary.Snippet, "see attached")
	}
}

func TestParseMessage_MissingHeaders(t *testing.T) {
	raw := []byte("Content-Type: text/plain\r\n\r\nhello")
	summary := ParseMessage(3, raw)

	if summary.Subject != "(no subject)" {
		t.Errorf("Subject = %q, want placeholder", summary.Subject)
	}
	if !summary.Date.IsZero() {
		t.Errorf("Date = %v, want zero for missing header", summary.Date)
	}
}

func TestParseMessage_BadDate(t *testing.T) {
	raw := []byte("Subject: x\r\nDate: not a real date\r\nContent-Type: text/plain\r\n\r\nbody")
	summary := ParseMessage(4, raw)

	if !summary.Date.IsZero() {
		t.Errorf("Date = %v, want zero for unparseable header", summary.Date)
	}
	if summary.Snippet != "body" {
		t.Errorf("Snippet = %q, bad date must not fail the parse", summary.Snippet)
	}
}

func TestShorten_WordBoundary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "short text", 500, "short text"},
		{"collapses whitespace", "a  b\n\nc\t d", 500, "a b c d"},
		{"breaks at word", "alpha beta gamma", 13, "alpha beta..."},
		{"single long word hard cut", "abcdefghijklmnop", 10, "abcdefg..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shorten(tt.in, tt.max); got != tt.want {
				t.Errorf("shorten(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
